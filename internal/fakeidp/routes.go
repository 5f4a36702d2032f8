package fakeidp

import "net/http"

// Realm-relative route paths, mirroring Keycloak's layout.
const (
	RouteDiscovery    = "/realms/{realm}/.well-known/openid-configuration"
	RouteAuth         = "/realms/{realm}/protocol/openid-connect/auth"
	RouteToken        = "/realms/{realm}/protocol/openid-connect/token"
	RouteUserInfo     = "/realms/{realm}/protocol/openid-connect/userinfo"
	RouteCerts        = "/realms/{realm}/protocol/openid-connect/certs"
	RouteAuthenticate = "/realms/{realm}/login-actions/authenticate"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteDiscovery, ChainMiddleware(s.Discovery(), s.middleware()...))
	s.RegisterRouteFunc("GET "+RouteCerts, ChainMiddleware(s.Certs(), s.middleware()...))
	s.RegisterRouteFunc("GET "+RouteAuth, ChainMiddleware(s.Authorize(), s.middleware()...))
	s.RegisterRouteFunc("GET "+RouteAuthenticate, ChainMiddleware(s.LoginPage(), s.middleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthenticate, ChainMiddleware(s.Authenticate(), s.middleware()...))
	s.RegisterRouteFunc("POST "+RouteToken, ChainMiddleware(s.Token(), s.middleware()...))
	s.RegisterRouteFunc("GET "+RouteUserInfo, ChainMiddleware(s.UserInfo(), s.middleware()...))
	s.RegisterRouteFunc("POST "+RouteUserInfo, ChainMiddleware(s.UserInfo(), s.middleware()...))
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}
