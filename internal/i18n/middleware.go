package i18n

import "net/http"

const langCookie = "lang"

// Middleware picks the request language from the "lang" query parameter,
// then the lang cookie, then Accept-Language, falling back to the default
// set in Init. A query choice is remembered in the cookie.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("lang")
		var cookie string
		if c, err := r.Cookie(langCookie); err == nil {
			cookie = c.Value
		}
		lang := Match(query, cookie, r.Header.Get("Accept-Language"))
		if query != "" && query == lang {
			http.SetCookie(w, &http.Cookie{
				Name:     langCookie,
				Value:    lang,
				Path:     "/",
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := WithLocalizer(r.Context(), NewLocalizer(lang))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
