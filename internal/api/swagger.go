package api

import (
	"net/http"
	"os"
	"strings"
)

// SpecHandler serves the OpenAPI YAML spec with runtime placeholders
// substituted. The file on disk contains {oktaIssuer} so it stays free of any
// concrete tenant URL.
func SpecHandler(oktaIssuer string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := os.ReadFile("api/openapi.yaml")
		if err != nil {
			http.Error(w, "failed to load spec", http.StatusInternalServerError)
			return
		}
		spec := strings.ReplaceAll(string(data), "{oktaIssuer}", oktaIssuer)
		w.Header().Set("Content-Type", "application/yaml")
		w.Write([]byte(spec))
	}
}

// SwaggerHandler serves a Swagger UI page backed by the CDN-hosted assets and
// preconfigured for the application's Okta tenant with PKCE.
func SwaggerHandler(clientID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		oauth2Redirect := scheme + "://" + r.Host + "/docs/oauth2-redirect.html"

		html := strings.ReplaceAll(swaggerHTML, "${SPEC_URL}", "/openapi.yaml")
		html = strings.ReplaceAll(html, "${OAUTH2_REDIRECT}", oauth2Redirect)
		html = strings.ReplaceAll(html, "${CLIENT_ID}", clientID)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
	}
}

// OAuthRedirectHandler serves the OAuth2 redirect page used by Swagger UI.
func OAuthRedirectHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(oauthRedirectHTML))
}

const swaggerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <title>PPA API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
  <script>
  window.onload = function() {
    const ui = SwaggerUIBundle({
      url: "${SPEC_URL}",
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: "BaseLayout",
      oauth2RedirectUrl: "${OAUTH2_REDIRECT}",
    });
    window.ui = ui;

    ui.initOAuth({
      clientId: "${CLIENT_ID}",
      usePkceWithAuthorizationCodeGrant: true,
    });
  }
  </script>
</body>
</html>`

const oauthRedirectHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"/><title>OAuth2 Redirect</title></head>
<body>
<script>
if (window.opener && window.opener.swaggerUIRedirectCallback) {
  window.opener.swaggerUIRedirectCallback(window.location.href);
}
</script>
</body>
</html>`
