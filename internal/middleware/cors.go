package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS allows the configured origins plus any https origin whose host starts
// with previewPrefix, which is how preview deployments are named.
func CORS(origins []string, previewPrefix string) fiber.Handler {
	allowed := make(map[string]struct{}, len(origins))
	list := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(o, "/")
		allowed[o] = struct{}{}
		list = append(list, o)
	}
	if len(list) == 0 {
		// an empty list would make fiber fall back to "*"
		list = append(list, "http://localhost:5173")
	}

	return cors.New(cors.Config{
		AllowOrigins: strings.Join(list, ","),
		AllowOriginsFunc: func(origin string) bool {
			return OriginAllowed(allowed, previewPrefix, origin)
		},
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,OPTIONS",
	})
}

func OriginAllowed(allowed map[string]struct{}, previewPrefix, origin string) bool {
	origin = strings.TrimRight(origin, "/")
	if _, ok := allowed[origin]; ok {
		return true
	}
	if previewPrefix == "" {
		return false
	}
	host, ok := strings.CutPrefix(origin, "https://")
	return ok && strings.HasPrefix(host, previewPrefix)
}
