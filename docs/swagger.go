package docs

import "github.com/swaggo/swag"

// @title Delivery Management Panel API
// @version 1.0
// @description Admin/business panel API for the food delivery platform
// @host localhost:8080
// @BasePath /api/v1
var SwaggerInfo = &swag.Spec{
	Version:     "1.0",
	Host:        "localhost:8080",
	BasePath:    "/api/v1",
	Title:       "Delivery Management Panel API",
	Description: "Admin/business panel API for the food delivery platform",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
