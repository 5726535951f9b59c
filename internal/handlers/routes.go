package handlers

import "net/http"

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Sessions  SessionManager
	Relations RelationToggler
	Views     ViewBuilder
	WatchLog  ViewRecorder
	Database  Pinger
	Metrics   http.Handler
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Database: deps.Database}
	authn := Authenticator{Sessions: deps.Sessions}
	accounts := AuthHandler{Sessions: deps.Sessions}
	relations := RelationHandler{Relations: deps.Relations}
	channels := ChannelHandler{Views: deps.Views, WatchLog: deps.WatchLog}

	mux.HandleFunc("GET /healthz", health.Handle)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	mux.HandleFunc("POST /api/v1/auth/signup", accounts.SignUp)
	mux.HandleFunc("POST /api/v1/auth/login", accounts.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", accounts.Refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", authn.Require(accounts.Logout))
	mux.HandleFunc("POST /api/v1/auth/change-password", authn.Require(accounts.ChangePassword))
	mux.HandleFunc("GET /api/v1/auth/me", authn.Require(accounts.Me))

	mux.HandleFunc("POST /api/v1/subscriptions/{channelId}/toggle", authn.Require(relations.ToggleSubscription))
	mux.HandleFunc("PUT /api/v1/subscriptions/{channelId}", authn.Require(relations.Subscribe))
	mux.HandleFunc("DELETE /api/v1/subscriptions/{channelId}", authn.Require(relations.Unsubscribe))
	mux.HandleFunc("POST /api/v1/likes/{kind}/{targetId}/toggle", authn.Require(relations.ToggleLike))
	mux.HandleFunc("PUT /api/v1/likes/{kind}/{targetId}", authn.Require(relations.Like))
	mux.HandleFunc("DELETE /api/v1/likes/{kind}/{targetId}", authn.Require(relations.Unlike))

	mux.HandleFunc("GET /api/v1/channels/{channelId}", authn.Optional(channels.Profile))
	mux.HandleFunc("GET /api/v1/channels/{channelId}/stats", channels.Stats)
	mux.HandleFunc("GET /api/v1/channels/{channelId}/videos", authn.Optional(channels.Videos))
	mux.HandleFunc("GET /api/v1/channels/{channelId}/subscribers", channels.Subscribers)
	mux.HandleFunc("GET /api/v1/me/subscriptions", authn.Require(channels.Subscriptions))
	mux.HandleFunc("GET /api/v1/me/history", authn.Require(channels.History))
	mux.HandleFunc("GET /api/v1/me/liked-videos", authn.Require(channels.LikedVideos))
	mux.HandleFunc("POST /api/v1/videos/{videoId}/views", authn.Require(channels.RecordView))
}
