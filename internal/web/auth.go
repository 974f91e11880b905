package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Login renders the sign-in form.
func Login() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		writeHead(w, "Log in - PlayX")
		writeNav(w, "")
		_, _ = io.WriteString(w, `    <main class="shell narrow">
      <section class="panel">
        <h1>Log in</h1>
        <form id="loginForm" class="stack">
          <input name="email" type="email" placeholder="Email" autocomplete="email" required/>
          <input name="password" type="password" placeholder="Password" autocomplete="current-password" required/>
          <button type="submit" class="primary">Log in</button>
        </form>
        <div id="loginResult" class="result"></div>
        <p class="hint">No account yet? <a href="/register">Sign up</a>.</p>
      </section>
    </main>

    <script>
      const form = document.getElementById("loginForm");
      const result = document.getElementById("loginResult");

      form.addEventListener("submit", async (event) => {
        event.preventDefault();
        result.textContent = "Logging in...";
        const res = await fetch("/api/auth/login", {
          method: "POST",
          headers: { "Content-Type": "application/json" },
          body: JSON.stringify({
            email: form.elements.email.value.trim(),
            password: form.elements.password.value
          })
        });
        const body = await res.json();
        if (!res.ok) {
          result.textContent = body.message || "Failed to log in.";
          return;
        }
        window.location = "/";
      });
    </script>
  </body>
</html>
`)
		return nil
	})
}

// Register renders the sign-up form.
func Register() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		writeHead(w, "Sign up - PlayX")
		writeNav(w, "")
		_, _ = io.WriteString(w, `    <main class="shell narrow">
      <section class="panel">
        <h1>Sign up</h1>
        <form id="registerForm" class="stack">
          <input name="name" placeholder="Display name" autocomplete="name" required/>
          <input name="email" type="email" placeholder="Email" autocomplete="email" required/>
          <input name="password" type="password" placeholder="Password" autocomplete="new-password" required/>
          <label class="checkbox">
            <input name="developer" type="checkbox"/> I want to publish games
          </label>
          <button type="submit" class="primary">Create account</button>
        </form>
        <div id="registerResult" class="result"></div>
        <p class="hint">Already registered? <a href="/login">Log in</a>.</p>
      </section>
    </main>

    <script>
      const form = document.getElementById("registerForm");
      const result = document.getElementById("registerResult");

      form.addEventListener("submit", async (event) => {
        event.preventDefault();
        result.textContent = "Creating account...";
        const res = await fetch("/api/auth/register", {
          method: "POST",
          headers: { "Content-Type": "application/json" },
          body: JSON.stringify({
            name: form.elements.name.value.trim(),
            email: form.elements.email.value.trim(),
            password: form.elements.password.value,
            role: form.elements.developer.checked ? "developer" : "user"
          })
        });
        const body = await res.json();
        if (!res.ok) {
          result.textContent = body.message || "Failed to create account.";
          return;
        }
        window.location = "/";
      });
    </script>
  </body>
</html>
`)
		return nil
	})
}
