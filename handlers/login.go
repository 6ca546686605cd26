package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"sharestream/services/sessions"
	"sharestream/services/webshare"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

// LoginHandler exchanges Webshare credentials for a session token.
type LoginHandler struct {
	sessions *sessions.Service
	webshare *webshare.Client
}

// NewLoginHandler creates the login handler.
func NewLoginHandler(sessionsSvc *sessions.Service, webshareClient *webshare.Client) *LoginHandler {
	return &LoginHandler{
		sessions: sessionsSvc,
		webshare: webshareClient,
	}
}

// Form serves a minimal login page for configuring the addon in a browser.
func (h *LoginHandler) Form(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(loginPage))
}

// Submit validates the posted credentials, logs in upstream, and returns a
// session token. Bad credentials map to 401, validation failures to 400.
func (h *LoginHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form data"})
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	if len(username) < minUsernameLen {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username must be at least 3 characters"})
		return
	}
	if len(password) < minPasswordLen {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 6 characters"})
		return
	}

	cred, err := h.webshare.Login(r.Context(), username, password)
	if err != nil {
		var authErr *webshare.AuthError
		if errors.As(err, &authErr) {
			message := authErr.Message
			if message == "" {
				message = "invalid credentials"
			}
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": message})
			return
		}
		log.Printf("[login] upstream login failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "login service unavailable"})
		return
	}

	token, err := sessions.GenerateToken()
	if err != nil {
		log.Printf("[login] token generation failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if err := h.sessions.Put(token, cred, sessions.DefaultTTL); err != nil {
		log.Printf("[login] session store failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"sessionToken": token})
}

const loginPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Webshare Stream</title>
<style>
body { font-family: sans-serif; max-width: 24rem; margin: 4rem auto; }
label { display: block; margin-top: 1rem; }
input { width: 100%; padding: 0.4rem; }
button { margin-top: 1.5rem; padding: 0.5rem 1.5rem; }
pre { background: #eee; padding: 0.5rem; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>Webshare Stream</h1>
<p>Log in with your Webshare.cz premium account to get an addon URL.</p>
<form id="login">
<label>Username <input name="username" required></label>
<label>Password <input name="password" type="password" required></label>
<button type="submit">Log in</button>
</form>
<pre id="result" hidden></pre>
<script>
document.getElementById("login").addEventListener("submit", async (e) => {
	e.preventDefault();
	const result = document.getElementById("result");
	result.hidden = false;
	const resp = await fetch("/login", { method: "POST", body: new URLSearchParams(new FormData(e.target)) });
	const data = await resp.json();
	if (data.sessionToken) {
		result.textContent = location.origin + "/" + data.sessionToken + "/manifest.json";
	} else {
		result.textContent = data.error || "login failed";
	}
});
</script>
</body>
</html>
`
