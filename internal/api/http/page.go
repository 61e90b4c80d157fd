package httpapi

import "html/template"

// pageTemplate renders the dashboard. The server fills in the current state and
// the script then polls /api/v1/display once a second.
var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: sans-serif; margin: 2em; }
  table { border-collapse: collapse; }
  td { padding: 0.15em 1em 0.15em 0; }
  td.label { font-weight: bold; }
  .stale { color: #a60; }
  .error { color: #b00; }
</style>
</head>
<body>
<h1 id="title">{{.Title}}</h1>
<h2 id="header">{{if .Ready}}{{.Header}}{{else}}Waiting for the first weather report...{{end}}</h2>
<img id="icon" alt="" {{if .Icon}}src="/api/v1/icon?v={{.RefreshID}}"{{else}}hidden{{end}}>
<table id="rows">
{{range .Rows}}<tr><td class="label">{{.Label}}</td><td>{{.Value}}</td></tr>
{{end}}</table>
<p id="currently">{{if .Ready}}Currently: {{.Currently}}{{end}}</p>
<p id="clock">{{.Clock}}</p>
<p id="status" class="{{if .Stale}}stale{{else}}error{{end}}">{{if .LastError}}{{.ErrorKind}}: {{.LastError}}{{end}}</p>
<script>
let refreshId = {{.RefreshID}};
function cell(text, cls) {
  const td = document.createElement("td");
  td.textContent = text;
  if (cls) td.className = cls;
  return td;
}
async function poll() {
  try {
    const res = await fetch("/api/v1/display", {cache: "no-store"});
    if (!res.ok) return;
    const s = await res.json();
    document.getElementById("clock").textContent = s.clock;
    const status = document.getElementById("status");
    status.className = s.stale ? "stale" : "error";
    status.textContent = s.lastError ? s.errorKind + ": " + s.lastError : "";
    if (!s.ready || s.refreshId === refreshId) return;
    refreshId = s.refreshId;
    document.getElementById("header").textContent = s.header;
    document.getElementById("currently").textContent = "Currently: " + s.currently;
    const icon = document.getElementById("icon");
    if (s.icon) {
      icon.src = "/api/v1/icon?v=" + encodeURIComponent(s.refreshId);
      icon.hidden = false;
    } else {
      icon.hidden = true;
    }
    const rows = document.getElementById("rows");
    rows.replaceChildren(...s.rows.map(r => {
      const tr = document.createElement("tr");
      tr.append(cell(r.label, "label"), cell(r.value));
      return tr;
    }));
  } catch (e) {
    console.error(e);
  }
}
setInterval(poll, 1000);
</script>
</body>
</html>
`))
