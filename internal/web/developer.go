package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Developer renders the developer dashboard: the catalog of games owned
// by the signed-in developer, a creation form, and per-game version
// upload forms.
func Developer(userName, userID string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		writeHead(w, "Developer - PlayX")
		writeNav(w, userName)
		_, _ = io.WriteString(w, `    <main class="shell">
      <header class="hero">
        <h1>Your games</h1>
        <p id="stats"></p>
      </header>

      <section class="panel">
        <h2>Create a game</h2>
        <form id="createForm" class="stack" enctype="multipart/form-data">
          <input name="title" placeholder="Title" required/>
          <textarea name="description" placeholder="Description"></textarea>
          <input name="image" type="file" accept="image/*"/>
          <button type="submit" class="primary">Create</button>
        </form>
        <div id="createResult" class="result"></div>
      </section>

      <section id="games" class="catalog"></section>
    </main>

    <script>
      const userId = `+jsString(userID)+`;
      const createForm = document.getElementById("createForm");
      const createResult = document.getElementById("createResult");
      const gamesEl = document.getElementById("games");
      const statsEl = document.getElementById("stats");

      async function refresh() {
        const statsRes = await fetch("/api/games/stats");
        if (statsRes.ok) {
          const stats = (await statsRes.json()).data;
          statsEl.textContent = stats.totalGames + " games, " + stats.totalScores + " points scored by players.";
        }
        const res = await fetch("/api/games?userId=" + encodeURIComponent(userId));
        if (!res.ok) return;
        const body = await res.json();
        gamesEl.innerHTML = "";
        for (const game of body.data) {
          const card = document.createElement("div");
          card.className = "card";
          card.innerHTML =
            "<h2></h2><p></p>" +
            '<form class="upload"><input name="file" type="file" accept=".zip" required/>' +
            '<button type="submit" class="secondary">Upload version</button></form>' +
            '<div class="result"></div>';
          card.querySelector("h2").textContent = game.title;
          card.querySelector("p").textContent = game.description;
          const form = card.querySelector("form");
          const result = card.querySelector(".result");
          form.addEventListener("submit", async (event) => {
            event.preventDefault();
            result.textContent = "Uploading...";
            const data = new FormData(form);
            const res = await fetch("/api/games/" + encodeURIComponent(game.slug), {
              method: "POST",
              body: data
            });
            const body = await res.json();
            if (!res.ok) {
              result.textContent = body.message || "Upload failed.";
              return;
            }
            result.textContent = "Version " + body.data.version + " published.";
          });
          gamesEl.appendChild(card);
        }
      }

      createForm.addEventListener("submit", async (event) => {
        event.preventDefault();
        createResult.textContent = "Creating...";
        const res = await fetch("/api/games", { method: "POST", body: new FormData(createForm) });
        const body = await res.json();
        if (!res.ok) {
          createResult.textContent = body.message || "Failed to create game.";
          return;
        }
        createResult.textContent = "Created " + body.data.title + ".";
        createForm.reset();
        refresh();
      });

      refresh();
    </script>
  </body>
</html>
`)
		return nil
	})
}
