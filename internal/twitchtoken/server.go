package twitchtoken

import (
	"fmt"
	"html"
	"net/http"

	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>%s</title></head>
<body><h1>%s</h1><p>%s</p></body>
</html>
`

// CallbackHandler serves /callback of the OAuth authorization code flow.
func CallbackHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		errDesc := r.URL.Query().Get("error_description")
		logger.Error("OAuth error", zap.String("error", errParam), zap.String("description", errDesc))
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, pageTemplate, "Ошибка авторизации", "Ошибка авторизации",
			html.EscapeString(errParam+": "+errDesc))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "code not found", http.StatusBadRequest)
		return
	}
	if _, err := ExchangeCode(code); err != nil {
		logger.Error("Failed to exchange OAuth code", zap.Error(err))
		http.Error(w, "token exchange failed", http.StatusBadGateway)
		return
	}
	fmt.Fprintf(w, pageTemplate, "Готово", "Готово", "Бот подключён к Twitch. Окно можно закрыть.")
}

// AuthRedirectHandler sends the operator to the Twitch consent page.
func AuthRedirectHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, GetAuthURL(), http.StatusFound)
}
