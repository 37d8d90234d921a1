package router

import (
    "github.com/labstack/echo/v4"

    "github.com/printhub/printhub/internal/handler"
    "github.com/printhub/printhub/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication at
// all. Currently that is only the health check used by load
// balancers.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints under /v1/auth
// plus the authenticated GET /v1/me. Register, login and the refresh
// endpoints need no session; logout accepts either a bearer token or
// a refresh token in the body.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    g.POST("/refresh", a.Refresh)
    g.POST("/refresh-access", a.RefreshAccess)
    g.POST("/logout", a.Logout)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole(handler.RoleUser, handler.RoleAdmin))
    auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated catalogue reads. When
// a cache middleware is provided (Redis reachable), the responses are
// served from cache within their TTL.
func RegisterPublic(e *echo.Echo, m *handler.PrintModelHandler, cache echo.MiddlewareFunc) {
    mws := []echo.MiddlewareFunc{}
    if cache != nil {
        mws = append(mws, cache)
    }
    e.GET("/v1/models", m.List, mws...)
    e.GET("/v1/models/:id", m.Show, mws...)
}

// RegisterUser registers the endpoints available to every
// authenticated account. The unlock endpoint additionally runs
// through the token-bucket limiter when one is provided; the limiter
// sits inside the authenticated group so the bucket can key on the
// user id.
func RegisterUser(e *echo.Echo, jwtSecret string, u *handler.UserHandler, b *handler.BoxHandler, o *handler.OrderHandler, unlockLimit echo.MiddlewareFunc) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole(handler.RoleUser, handler.RoleAdmin))

    g.PATCH("/me", u.UpdateMe)
    g.DELETE("/me", u.DeleteMe)

    g.GET("/boxes", b.List)
    g.GET("/boxes/:id", b.Show)
    g.POST("/boxes/check-access", b.CheckAccess)
    if unlockLimit != nil {
        g.POST("/boxes/:id/unlock", b.RequestUnlock, unlockLimit)
    } else {
        g.POST("/boxes/:id/unlock", b.RequestUnlock)
    }

    g.GET("/my/unlocks", u.MyUnlocks)
    g.GET("/my/boxes", u.MyBoxes)
    g.GET("/my/orders", o.ListMine)

    g.POST("/orders", o.Create)
    g.GET("/orders/:id", o.Show)
    g.POST("/orders/:id/cancel", o.Cancel)
}

// RegisterAdmin registers the management surface. Every route
// requires the ADMIN role.
func RegisterAdmin(e *echo.Echo, jwtSecret string, u *handler.UserHandler, b *handler.BoxHandler, m *handler.PrintModelHandler, o *handler.OrderHandler, ul *handler.UnlockHandler, st *handler.StatsHandler) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole(handler.RoleAdmin))

    g.GET("/users", u.List)
    g.GET("/users/:id", u.Show)
    g.PATCH("/users/:id", u.AdminUpdate)
    g.DELETE("/users/:id", u.Delete)
    g.GET("/users/:id/unlocks", u.UserUnlocks)
    g.GET("/users/:id/boxes", u.UserBoxes)

    g.POST("/boxes", b.Create)
    g.PATCH("/boxes/:id", b.Update)
    g.DELETE("/boxes/:id", b.Delete)
    g.POST("/boxes/:id/access", b.GrantAccess)
    g.DELETE("/boxes/:id/access/:userID", b.RevokeAccess)
    g.GET("/boxes/:id/unlocks", b.History)
    g.POST("/boxes/:id/reset", b.ResetAvailability)

    g.POST("/models", m.Create)
    g.PATCH("/models/:id", m.Update)
    g.DELETE("/models/:id", m.Delete)

    g.GET("/orders", o.ListAll)
    g.PATCH("/orders/:id", o.AdminUpdate)
    g.DELETE("/orders/:id", o.Delete)

    g.GET("/unlocks", ul.List)
    g.GET("/unlocks/:id", ul.Show)
    g.DELETE("/unlocks/:id", ul.Delete)

    g.GET("/stats/overview", st.Overview)
    g.GET("/stats/top-models", st.TopModels)
    g.GET("/stats/recent-orders", st.RecentOrders)
}
