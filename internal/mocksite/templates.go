package mocksite

import "html/template"

// The markup deliberately mirrors the DOM shape of the big social networks:
// aria-label driven controls, a contenteditable composer, and message rows
// with an outgoing marker on the visitor's own rows. The suite's locators
// are written against these attributes.

const loginPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Sign in</title>
<style>
body { font-family: sans-serif; max-width: 420px; margin: 4rem auto; }
#consent-overlay { position: fixed; inset: 0; background: rgba(0,0,0,.55); display: flex; align-items: flex-end; justify-content: center; }
#consent-overlay .sheet { background: #fff; padding: 1.5rem; width: 100%; }
#consent-overlay div[role='button'] { cursor: pointer; background: #1877f2; color: #fff; padding: .6rem 1rem; display: inline-block; border-radius: 6px; }
.error { color: #b00020; }
input { display: block; width: 100%; margin: .5rem 0; padding: .5rem; }
button[name='login'] { background: #1877f2; color: #fff; padding: .6rem 1.2rem; border: 0; border-radius: 6px; }
</style>
</head>
<body>
<h1>Sign in</h1>
{{if .Error}}<div class="error" role="alert">{{.Error}}</div>{{end}}
<form method="post" action="/login">
  <input type="email" name="email" placeholder="Email address" autocomplete="username">
  <input type="password" name="pass" placeholder="Password" autocomplete="current-password">
  <button type="submit" name="login">Log in</button>
</form>
{{if .ShowConsent}}
<div id="consent-overlay" aria-label="Cookie consent">
  <div class="sheet">
    <p>We use cookies to keep you signed in.</p>
    <div role="button" tabindex="0" aria-label="Allow all cookies" onclick="acceptCookies()">Allow all cookies</div>
  </div>
</div>
<script>
function acceptCookies() {
  document.cookie = "consent_ok=1; path=/; max-age=31536000";
  document.getElementById("consent-overlay").remove();
}
</script>
{{end}}
</body>
</html>`

const homePageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Home</title>
</head>
<body>
<nav>
  <a aria-label="Home" href="/home">Home</a>
  <a href="/page">{{.PageName}}</a>
  <a href="/logout">Log out</a>
</nav>
<h1>Welcome back, {{.Email}}</h1>
</body>
</html>`

const chatPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.PageName}}</title>
<style>
body { font-family: sans-serif; max-width: 640px; margin: 2rem auto; }
div[aria-label='Message'][role='button'] { cursor: pointer; background: #1877f2; color: #fff; padding: .6rem 1.2rem; display: inline-block; border-radius: 6px; }
#chat-panel { display: none; border: 1px solid #ddd; border-radius: 8px; margin-top: 1rem; padding: 1rem; }
#chat-input { border: 1px solid #ccc; border-radius: 18px; padding: .5rem .8rem; min-height: 1.2em; outline: none; }
div[role='row'] { margin: .4rem 0; }
div[role='row'][data-author='visitor'] { text-align: right; }
div[data-message] { display: inline-block; padding: .4rem .7rem; border-radius: 14px; background: #f0f0f0; }
div[role='row'][data-author='visitor'] div[data-message] { background: #1877f2; color: #fff; }
</style>
</head>
<body>
<nav><a aria-label="Home" href="/home">Home</a></nav>
<h1>{{.PageName}}</h1>
<div role="button" tabindex="0" aria-label="Message" id="open-chat">Message</div>
<div id="chat-panel">
  <div id="messages"></div>
  <div aria-label="Message" contenteditable="true" id="chat-input" data-placeholder="Aa"></div>
</div>
<script>
(function () {
  var stream = null;

  function appendRow(author, html, text) {
    var row = document.createElement("div");
    row.setAttribute("role", "row");
    row.setAttribute("data-author", author);
    if (author === "visitor") {
      var marker = document.createElement("div");
      marker.setAttribute("data-testid", "outgoing_message");
      row.appendChild(marker);
    }
    var body = document.createElement("div");
    body.setAttribute("data-message", "");
    if (html) {
      body.innerHTML = html;
    } else {
      body.textContent = text;
    }
    row.appendChild(body);
    document.getElementById("messages").appendChild(row);
  }

  function openChat() {
    document.getElementById("chat-panel").style.display = "block";
    document.getElementById("chat-input").focus();
    if (!stream) {
      stream = new EventSource("/api/stream");
      stream.addEventListener("bot", function (e) {
        var payload = JSON.parse(e.data);
        appendRow("bot", payload.html, null);
      });
    }
  }

  document.getElementById("open-chat").addEventListener("click", openChat);

  document.getElementById("chat-input").addEventListener("keydown", function (e) {
    if (e.key !== "Enter" || e.shiftKey) {
      return;
    }
    e.preventDefault();
    var input = document.getElementById("chat-input");
    var text = input.innerText.trim();
    if (!text) {
      return;
    }
    input.innerText = "";
    appendRow("visitor", null, text);
    fetch("/api/messages", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ text: text })
    });
  });
})();
</script>
</body>
</html>`

var (
	loginTmpl = template.Must(template.New("login").Parse(loginPageHTML))
	homeTmpl  = template.Must(template.New("home").Parse(homePageHTML))
	chatTmpl  = template.Must(template.New("chat").Parse(chatPageHTML))
)
