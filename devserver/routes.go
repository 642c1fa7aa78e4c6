package devserver

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes() *gin.Engine {
	r := gin.Default()

	corsConfig := cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	r.Use(cors.New(corsConfig))

	r.GET("/ws", HandleWS)

	api := r.Group("/api")
	api.POST("/register", Register)
	api.POST("/login", Login)

	{
		api.Use(TokenAuthMiddleware())
		api.GET("/conversations", GetConversaciones)
		api.POST("/conversations", CreateConversacion)
		api.GET("/conversations/:id", GetConversacionByID)
		api.GET("/conversations/:id/mensajes", GetMensajes)
		api.POST("/conversations/:id/mensajes", SendMensaje)
		api.POST("/conversations/:id/leer", MarcarLeido)
		api.GET("/vacantes/activas", GetActiveVacantes)
		api.GET("/vacantes/:vacante_id/postulaciones", GetPostulaciones)
	}

	return r
}
