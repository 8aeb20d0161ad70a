package app

import (
	"log"
	"mime"
)

// swaggerAssetTypes lists extensions served by /swagger/*. Minimal images lack
// /etc/mime.types, which leaves them unregistered.
var swaggerAssetTypes = map[string]string{
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".json": "application/json",
	".png":  "image/png",
}

func init() {
	for ext, typ := range swaggerAssetTypes {
		if mime.TypeByExtension(ext) != "" {
			continue
		}
		if err := mime.AddExtensionType(ext, typ); err != nil {
			log.Printf("app: register MIME type for %s: %v", ext, err)
		}
	}
}
