package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Play renders the embedded frame for a game's latest version together
// with its leaderboard. The frame posts score messages to the parent
// window, which relays them to the scores API.
func Play(userName string, data PlayData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		writeHead(w, data.Title+" - PlayX")
		writeNav(w, userName)
		_, _ = io.WriteString(w, `    <main class="shell play">
      <header class="play-header">
        <h1>`+templ.EscapeString(data.Title)+`</h1>
        <p>`+templ.EscapeString(data.Description)+`</p>
        <span class="meta">version `+templ.EscapeString(data.Version)+`</span>
      </header>

      <section class="frame">
        <iframe id="game" src="`+templ.EscapeString(data.EntryPath)+`" allowfullscreen></iframe>
      </section>

      <section class="panel">
        <h2>Leaderboard</h2>
        <ol id="leaderboard"></ol>
        <div id="scoreResult" class="result"></div>
      </section>
    </main>

    <script>
      const slug = `+jsString(data.Slug)+`;
      const versionId = `+utoa(data.VersionID)+`;
      const board = document.getElementById("leaderboard");
      const scoreResult = document.getElementById("scoreResult");

      async function refreshScores() {
        const res = await fetch("/api/games/" + encodeURIComponent(slug) + "/scores");
        if (!res.ok) return;
        const body = await res.json();
        board.innerHTML = "";
        for (const entry of body.data) {
          const item = document.createElement("li");
          const name = entry.user ? entry.user.name : "anonymous";
          item.textContent = name + " - " + entry.score;
          board.appendChild(item);
        }
      }

      window.addEventListener("message", async (event) => {
        const score = Number(event.data && event.data.score);
        if (!Number.isFinite(score) || score <= 0) return;
        const res = await fetch("/api/games/" + encodeURIComponent(slug) + "/scores", {
          method: "POST",
          headers: { "Content-Type": "application/json" },
          body: JSON.stringify({ gameVersionId: versionId, score: Math.floor(score) })
        });
        const body = await res.json();
        if (!res.ok) {
          scoreResult.textContent = body.message || "Failed to submit score.";
          return;
        }
        scoreResult.textContent = "Score saved: " + body.data.score;
        refreshScores();
      });

      refreshScores();
    </script>
  </body>
</html>
`)
		return nil
	})
}

func jsString(value string) string {
	return `"` + templ.EscapeString(value) + `"`
}
