package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func writeHead(w io.Writer, title string) {
	_, _ = io.WriteString(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>`+templ.EscapeString(title)+`</title>
    <link rel="stylesheet" href="`+assetPath("/static/styles.css")+`"/>
  </head>
  <body>
`)
}

func writeNav(w io.Writer, userName string) {
	_, _ = io.WriteString(w, `    <nav class="topbar">
      <a class="brand" href="/">PlayX</a>
      <div class="links">
`)
	if userName == "" {
		_, _ = io.WriteString(w, `        <a href="/login">Log in</a>
        <a href="/register">Sign up</a>
`)
	} else {
		_, _ = io.WriteString(w, `        <span class="user">`+templ.EscapeString(userName)+`</span>
        <a href="/developer">Developer</a>
        <a href="#" id="logout">Log out</a>
`)
	}
	_, _ = io.WriteString(w, `      </div>
    </nav>
    <script>
      const logout = document.getElementById("logout");
      if (logout) logout.addEventListener("click", async (event) => {
        event.preventDefault();
        await fetch("/api/auth/logout", { method: "POST" });
        window.location = "/";
      });
    </script>
`)
}

// Home renders the public game catalog.
func Home(userName string, cards []GameCard) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		writeHead(w, "PlayX")
		writeNav(w, userName)
		_, _ = io.WriteString(w, `    <main class="shell">
      <header class="hero">
        <span class="tag">PlayX</span>
        <h1>Play in the browser. Chase the top score.</h1>
        <p>Pick a game from the catalog and start playing, no install needed.</p>
      </header>

      <section class="catalog">
`)
		if len(cards) == 0 {
			_, _ = io.WriteString(w, `        <p class="empty">No games published yet.</p>
`)
		}
		for _, card := range cards {
			_, _ = io.WriteString(w, `        <a class="card" href="/play/`+templ.EscapeString(card.Slug)+`">
`)
			if card.Image != "" {
				_, _ = io.WriteString(w, `          <img src="/images/`+templ.EscapeString(card.Image)+`" alt=""/>
`)
			}
			_, _ = io.WriteString(w, `          <h2>`+templ.EscapeString(card.Title)+`</h2>
          <p>`+templ.EscapeString(card.Description)+`</p>
          <span class="meta">`+itoa(int(card.TotalPlayers))+` players &middot; `+itoa(int(card.ScoreCount))+` points scored</span>
        </a>
`)
		}
		_, _ = io.WriteString(w, `      </section>
    </main>
  </body>
</html>
`)
		return nil
	})
}
