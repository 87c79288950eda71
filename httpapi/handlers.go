package httpapi

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"huddle/auth"
	"huddle/domain"
	"huddle/room"
)

const (
	ErrInvalidRequestFormatStr = "bad-request-format"
	ErrMissingParameterStr     = "missing-parameter"
	ErrServerTimeoutStr        = "server-timeout"
	ErrUnknownStr              = "unknown-error"

	sessionCookie = "session_token"
	joinTimeout   = 10 * time.Second
)

type SessionIssuer interface {
	CreateRoom(ctx context.Context, in auth.CreateRoomInput) (auth.Session, error)
	OpenSession(ctx context.Context, roomKey, userName, passcode string, spectator bool) (auth.Session, error)
}

type RoomJoiner interface {
	Join(ctx context.Context, req room.JoinRequest) error
}

// ClientLimits sizes every new connection.
type ClientLimits struct {
	OutboxSize        int
	MessagesPerSecond float64
	Burst             int
}

type Handler struct {
	sessions     SessionIssuer
	hub          RoomJoiner
	limits       ClientLimits
	cookieMaxAge time.Duration
	upgrader     websocket.Upgrader
}

func NewHandler(sessions SessionIssuer, hub RoomJoiner, limits ClientLimits, cookieMaxAge time.Duration, allowedOrigins []string) *Handler {
	return &Handler{
		sessions:     sessions,
		hub:          hub,
		limits:       limits,
		cookieMaxAge: cookieMaxAge,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

func (h *Handler) Register(r *gin.Engine) {
	rooms := r.Group("/rooms")
	rooms.POST("", h.CreateRoomHandler)
	rooms.POST("/:roomKey/sessions", h.OpenSessionHandler)

	ws := r.Group("/ws")
	ws.GET("/rooms/:roomKey", h.SocketHandler("", "roomKey"))
	ws.GET("/wheels/:wheelName", h.SocketHandler(domain.KindWheel, "wheelName"))
}

type sessionResponse struct {
	Key          string    `json:"key"`
	UserName     string    `json:"userName"`
	Spectator    bool      `json:"spectator"`
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (h *Handler) respondSession(ctx *gin.Context, status int, sess auth.Session) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(sessionCookie, sess.Token, int(h.cookieMaxAge.Seconds()), "/", "", true, true)
	ctx.JSON(status, sessionResponse{
		Key:          sess.RoomKey,
		UserName:     sess.UserName,
		Spectator:    sess.Spectator,
		SessionToken: sess.Token,
		ExpiresAt:    sess.ExpiresAt,
	})
}

func (h *Handler) CreateRoomHandler(ctx *gin.Context) {
	var body struct {
		Key           string                `json:"key"`
		Kind          domain.RoomKind       `json:"kind"`
		ModeratorName string                `json:"moderatorName"`
		Passcode      string                `json:"passcode"`
		Settings      *domain.SettingsPatch `json:"settings"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.String(http.StatusBadRequest, ErrInvalidRequestFormatStr)
		return
	}

	sess, err := h.sessions.CreateRoom(ctx.Request.Context(), auth.CreateRoomInput{
		Key:           body.Key,
		Kind:          body.Kind,
		ModeratorName: body.ModeratorName,
		Passcode:      body.Passcode,
		Settings:      body.Settings,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	h.respondSession(ctx, http.StatusCreated, sess)
}

func (h *Handler) OpenSessionHandler(ctx *gin.Context) {
	var body struct {
		UserName  string `json:"userName"`
		Passcode  string `json:"passcode"`
		Spectator bool   `json:"spectator"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.String(http.StatusBadRequest, ErrInvalidRequestFormatStr)
		return
	}

	sess, err := h.sessions.OpenSession(ctx.Request.Context(), ctx.Param("roomKey"), body.UserName, body.Passcode, body.Spectator)
	if err != nil {
		respondError(ctx, err)
		return
	}
	h.respondSession(ctx, http.StatusOK, sess)
}

func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidRoomKind), errors.Is(err, auth.ErrInvalidRoomKey),
		errors.Is(err, auth.ErrPasscodeTooLong), errors.Is(err, domain.ErrInvalidName):
		ctx.String(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRoomNotFound):
		ctx.String(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateRoom):
		ctx.String(http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPasscodeNeeded), errors.Is(err, domain.ErrWrongPasscode):
		ctx.String(http.StatusUnauthorized, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		ctx.String(http.StatusGatewayTimeout, ErrServerTimeoutStr)
	default:
		log.Error().Err(err).Str("module", "http").Msg("request failed")
		ctx.String(http.StatusInternalServerError, ErrUnknownStr)
	}
}

// SocketHandler upgrades the request and hands the connection to the hub.
// Rejections after the upgrade are reported on the socket itself.
func (h *Handler) SocketHandler(kind domain.RoomKind, param string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := ctx.Param(param)
		userName := ctx.Query("userName")
		token, err := ctx.Cookie(sessionCookie)
		if err != nil || token == "" {
			token = ctx.Query("sessionToken")
		}
		if key == "" || userName == "" || token == "" {
			ctx.String(http.StatusBadRequest, ErrMissingParameterStr)
			return
		}

		conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			return
		}
		wsConn := room.NewWebsocketConnection(conn)
		client := room.NewClient(wsConn, h.limits.OutboxSize, h.limits.MessagesPerSecond, h.limits.Burst)

		joinCtx, cancel := context.WithTimeout(ctx.Request.Context(), joinTimeout)
		defer cancel()
		err = h.hub.Join(joinCtx, room.JoinRequest{
			Client:   client,
			RoomKey:  key,
			Kind:     kind,
			UserName: userName,
			Token:    token,
		})
		if err != nil {
			log.Info().Err(err).Str("module", "http").Str("room", key).Msg("socket rejected")
			room.Reject(wsConn, err)
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
