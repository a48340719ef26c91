package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/linkvault-app/linkvault-back/internal/bookmarks"
	"github.com/linkvault-app/linkvault-back/internal/config"
	"github.com/linkvault-app/linkvault-back/internal/session"
)

const sessionCookie = "lv_session"

type (
	BookmarkCreateReq struct {
		URL   string `json:"url" validate:"required"`
		Title string `json:"title" validate:"required"`
	}

	BookmarkUpdateReq struct {
		URL   *string `json:"url"`
		Title *string `json:"title"`
	}

	SignInResp struct {
		RedirectURL string `json:"redirect_url"`
	}

	SuccessResp struct {
		Success bool `json:"success"`
	}

	ErrorResp struct {
		Error string `json:"error"`
	}

	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		echo       *echo.Echo
		store      bookmarks.Store
		sessions   session.Resolver
		broker     *bookmarks.Broker
		logger     *zap.SugaredLogger
		sessionTTL time.Duration
	}
)

func NewHTTPServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	store bookmarks.Store,
	sessions session.Resolver,
	broker *bookmarks.Broker,
	logger *zap.SugaredLogger,
) *HTTPServer {
	e := echo.New()

	instance := HTTPServer{
		echo:       e,
		store:      store,
		sessions:   sessions,
		broker:     broker,
		logger:     logger,
		sessionTTL: cfg.SessionTTL,
	}

	authG := e.Group("/auth")
	authG.POST("/signin", instance.SignIn)
	authG.GET("/callback", instance.Callback)
	authG.POST("/signout", instance.SignOut)
	authG.GET("/session", instance.Session)

	bookmarkG := e.Group("/bookmarks")
	bookmarkG.GET("", instance.BookmarkList)
	bookmarkG.POST("", instance.BookmarkCreate)
	bookmarkG.PATCH("/:id", instance.BookmarkUpdate)
	bookmarkG.DELETE("/:id", instance.BookmarkDelete)
	bookmarkG.GET("/events", instance.BookmarkEvents)

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(instance.AuthMiddleware)

	e.Validator = &CustomValidator{validator: validator.New()}

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					e.Logger.Fatal("shutting down the server")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return &instance
}

func (s *HTTPServer) SignIn(c echo.Context) error {
	grant, err := s.sessions.SignIn(c.Request().Context())
	if err != nil {
		if errors.Is(err, session.ErrProviderUnavailable) {
			s.logger.Errorw("sign-in failed", "error", err)
			return c.JSON(http.StatusBadGateway, ErrorResp{Error: "identity provider unavailable"})
		}
		s.logger.Errorw("sign-in failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResp{Error: "internal server error"})
	}

	if grant.RedirectURL != "" {
		return c.JSON(http.StatusOK, SignInResp{RedirectURL: grant.RedirectURL})
	}

	s.setSessionCookie(c, grant.Credential)
	return c.JSON(http.StatusOK, grant.Identity)
}

// Callback lands the provider redirect: the authorization code is traded
// for a session and the credential is stored in the cookie before sending
// the browser back to the app. Failures also redirect; the app shows the
// signed-out state.
func (s *HTTPServer) Callback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	grant, err := s.sessions.Exchange(c.Request().Context(), code)
	if err != nil {
		s.logger.Errorw("code exchange failed", "error", err)
		return c.Redirect(http.StatusSeeOther, "/")
	}

	s.setSessionCookie(c, grant.Credential)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *HTTPServer) SignOut(c echo.Context) error {
	if credential := s.credentialFromRequest(c); credential != "" {
		// Best effort: the cookie is cleared either way, provider-side
		// revocation failure only shortens nothing.
		if err := s.sessions.SignOut(c.Request().Context(), credential); err != nil {
			s.logger.Warnw("provider sign-out failed", "error", err)
		}
	}

	s.clearSessionCookie(c)
	return c.JSON(http.StatusOK, SuccessResp{Success: true})
}

func (s *HTTPServer) Session(c echo.Context) error {
	identity, err := s.sessions.Current(c.Request().Context(), s.credentialFromRequest(c))
	if err != nil {
		s.logger.Errorw("session lookup failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResp{Error: "internal server error"})
	}
	if identity == nil {
		return c.JSON(http.StatusUnauthorized, ErrorResp{Error: "Unauthorized"})
	}
	return c.JSON(http.StatusOK, identity)
}

func (s *HTTPServer) BookmarkList(c echo.Context) error {
	identity, err := GetIdentityFromContext(c)
	if err != nil {
		return err
	}

	items, err := s.store.List(c.Request().Context(), identity.ID)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (s *HTTPServer) BookmarkCreate(c echo.Context) error {
	identity, err := GetIdentityFromContext(c)
	if err != nil {
		return err
	}

	req := BookmarkCreateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	created, err := s.store.Add(c.Request().Context(), identity.ID, req.URL, req.Title)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *HTTPServer) BookmarkUpdate(c echo.Context) error {
	id, err := GetParam(c, "id")
	if err != nil {
		return err
	}
	identity, err := GetIdentityFromContext(c)
	if err != nil {
		return err
	}

	req := BookmarkUpdateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := s.store.Update(c.Request().Context(), identity.ID, id, bookmarks.Patch{
		URL:   req.URL,
		Title: req.Title,
	})
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *HTTPServer) BookmarkDelete(c echo.Context) error {
	id, err := GetParam(c, "id")
	if err != nil {
		return err
	}
	identity, err := GetIdentityFromContext(c)
	if err != nil {
		return err
	}

	deleted, err := s.store.Delete(c.Request().Context(), identity.ID, id)
	if err != nil {
		return s.storeError(c, err)
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, ErrorResp{Error: "bookmark not found or unauthorized"})
	}
	return c.JSON(http.StatusOK, SuccessResp{Success: true})
}

// BookmarkEvents streams the caller's change events as server-sent events
// until the client disconnects.
func (s *HTTPServer) BookmarkEvents(c echo.Context) error {
	identity, err := GetIdentityFromContext(c)
	if err != nil {
		return err
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	events, cancel := s.broker.Subscribe(identity.ID)
	defer cancel()

	keepAlive := time.NewTicker(15 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return nil
			}
			w.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if isPublicPath(c.Path()) {
			return next(c)
		}

		identity, err := s.sessions.Current(c.Request().Context(), s.credentialFromRequest(c))
		if err != nil {
			s.logger.Errorw("resolve session", "error", err)
			return c.JSON(http.StatusInternalServerError, ErrorResp{Error: "internal server error"})
		}
		if identity == nil {
			return c.JSON(http.StatusUnauthorized, ErrorResp{Error: "Unauthorized"})
		}

		c.Set("identity", identity)
		return next(c)
	}
}

func isPublicPath(path string) bool {
	switch path {
	case "/ping", "/auth/signin", "/auth/callback", "/auth/signout", "/auth/session":
		return true
	}
	return false
}

func (s *HTTPServer) storeError(c echo.Context, err error) error {
	validationErr := &bookmarks.ValidationError{}
	if errors.As(err, &validationErr) {
		return c.JSON(http.StatusBadRequest, ErrorResp{Error: validationErr.Reason})
	}
	if errors.Is(err, bookmarks.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResp{Error: "bookmark not found or unauthorized"})
	}
	// Backend detail goes to the log only; the caller gets a stable body.
	s.logger.Errorw("store operation failed", "error", err)
	return c.JSON(http.StatusInternalServerError, ErrorResp{Error: "internal server error"})
}

func (s *HTTPServer) credentialFromRequest(c echo.Context) string {
	cookie, err := c.Cookie(sessionCookie)
	if err != nil || cookie == nil {
		return ""
	}
	return cookie.Value
}

func (s *HTTPServer) setSessionCookie(c echo.Context, credential string) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    credential,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *HTTPServer) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

////////

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return nil
}

func BindAndValidate(c echo.Context, v interface{}) error {
	var err error
	if err = c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err = c.Validate(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func GetIdentityFromContext(c echo.Context) (*session.Identity, error) {
	identity, _ := c.Get("identity").(*session.Identity)
	if identity == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return identity, nil
}

func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path param 'id'")
	}
	return value, nil
}
