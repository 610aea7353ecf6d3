package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")

	protected := api.Group("", s.middleware.Auth.RequireAuth())
	protected.GET("/usage", s.getUsage)
	protected.POST("/usage/reset", s.resetUsage)

	ai := protected.Group("/ai")
	ai.POST("/generate", s.generate)
	ai.GET("/history", s.getHistory)
}
