package render

import (
	"fmt"
	"html/template"
	"io"

	"github.com/lysyi3m/rss-reader/app/reader"
)

var funcMap = template.FuncMap{
	"plain": PlainText,
}

var fragments = template.Must(template.New("fragments").Funcs(funcMap).Parse(`
{{define "feeds"}}<div class="card border-0">
  <div class="card-body"><h2 class="card-title h4">{{.Labels.feeds}}</h2></div>
  <ul class="list-group border-0 rounded-0">
  {{- range .Feeds}}
    <li class="list-group-item border-0 border-end-0">
      <h3 class="h6 m-0">{{.Title}}</h3>
      <p class="m-0 small text-black-50">{{plain .Description}}</p>
    </li>
  {{- else}}
    <li class="list-group-item border-0 text-muted">{{.Labels.no_feeds}}</li>
  {{- end}}
  </ul>
</div>{{end}}

{{define "articles"}}<div class="card border-0">
  <div class="card-body"><h2 class="card-title h4">{{.Labels.articles}}</h2></div>
  <ul class="list-group border-0 rounded-0">
  {{- range .Articles}}
    <li class="list-group-item d-flex justify-content-between align-items-start border-0 border-end-0">
      <a href="{{.Link}}" class="fw-bold" target="_blank" rel="noopener noreferrer">{{.Title}}</a>
    </li>
  {{- end}}
  </ul>
</div>{{end}}
`))

var page = template.Must(template.Must(fragments.Clone()).New("page").Parse(`<!doctype html>
<html lang="{{.Lang}}">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Labels.title}}</title>
</head>
<body data-session="{{.SessionID}}">
  <main>
    <section class="container-fluid bg-dark p-5">
      <h1 class="display-3 mb-0 text-white">{{.Labels.title}}</h1>
      <form class="rss-form" data-api="{{.APIBase}}">
        <input id="url-input" name="url" autocomplete="off" placeholder="{{.Labels.placeholder}}"
          value="{{.Input}}"
          class="form-control w-100{{if .Form.Flagged}} is-invalid{{end}}"
          {{- if not .Form.InputEditable}} readonly{{end}}>
        <button type="submit" class="btn btn-lg btn-primary"
          {{- if not .Form.SubmitEnabled}} disabled{{end}}>{{.Labels.submit}}</button>
      </form>
      <p class="feedback m-0 small {{if .ErrorText}}text-danger{{else}}text-success{{end}}">
        {{- if .ErrorText}}{{.ErrorText}}{{else if .Waiting}}{{.Labels.loading}}{{end -}}
      </p>
    </section>
    <section class="container-fluid container-xxl p-5">
      <div class="row">
        <div class="col-md-10 col-lg-4 mx-auto order-0 order-lg-1 feeds">{{template "feeds" .}}</div>
        <div class="col-md-10 col-lg-8 order-1 mx-auto posts">{{template "articles" .}}</div>
      </div>
    </section>
  </main>
  <script>
  (() => {
    const api = document.querySelector(".rss-form").dataset.api;
    const key = new URLSearchParams(location.search).get("key");
    const headers = { "Content-Type": "application/json" };
    if (key) headers["X-API-Key"] = key;
    const input = document.getElementById("url-input");
    const button = document.querySelector(".rss-form button");
    const feedback = document.querySelector(".feedback");
    const post = (path, body) => fetch(api + path, { method: "POST", headers, body: JSON.stringify(body || {}) });
    let queue = Promise.resolve();
    const enqueue = (path, body) => {
      queue = queue.then(() => post(path, body)).catch(() => {});
      return queue;
    };

    input.addEventListener("input", () => enqueue("/input", { text: input.value }));
    document.querySelector(".rss-form").addEventListener("submit", (e) => {
      e.preventDefault();
      enqueue("/submit");
    });

    const events = new EventSource(api + "/events" + (key ? "?key=" + encodeURIComponent(key) : ""));
    events.addEventListener("form", (e) => {
      const view = JSON.parse(e.data);
      button.disabled = !view.form.submit_enabled;
      input.readOnly = !view.form.input_editable;
      input.classList.toggle("is-invalid", view.form.flagged);
      if (view.form.clear_input) input.value = "";
      if (view.status) {
        feedback.classList.remove("text-danger");
        feedback.textContent = view.status;
      }
    });
    events.addEventListener("error", (e) => {
      if (!e.data) return;
      const view = JSON.parse(e.data);
      feedback.classList.toggle("text-danger", !!view.message);
      feedback.classList.toggle("text-success", !view.message);
      feedback.textContent = view.message;
    });
    events.addEventListener("feeds", (e) => { document.querySelector(".feeds").innerHTML = JSON.parse(e.data).html; });
    events.addEventListener("articles", (e) => { document.querySelector(".posts").innerHTML = JSON.parse(e.data).html; });
  })();
  </script>
</body>
</html>
`))

// PageData is everything the page and fragments read.
type PageData struct {
	SessionID string
	APIBase   string
	Lang      string
	Input     string
	Form      FormView
	Waiting   bool
	ErrorText string
	Labels    map[string]string
	Feeds     []reader.Feed
	Articles  []reader.Article
}

// NewPageData assembles the view of state in the language negotiated from
// an Accept-Language value.
func NewPageData(c *Catalog, state reader.State, acceptLanguage string) PageData {
	tag := c.Negotiate(acceptLanguage)
	return PageData{
		Lang:      tag.String(),
		Form:      NewFormView(state.FormPhase),
		Waiting:   state.FormPhase == reader.PhaseWaiting,
		ErrorText: c.Message(state.Error, tag),
		Labels:    c.Labels(tag),
		Feeds:     state.Feeds,
		Articles:  state.Articles,
	}
}

func RenderPage(w io.Writer, data PageData) error {
	if err := page.ExecuteTemplate(w, "page", data); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}

// RenderFeeds writes the complete feeds list.
func RenderFeeds(w io.Writer, data PageData) error {
	if err := fragments.ExecuteTemplate(w, "feeds", data); err != nil {
		return fmt.Errorf("failed to render feeds: %w", err)
	}
	return nil
}

// RenderArticles writes the complete articles list.
func RenderArticles(w io.Writer, data PageData) error {
	if err := fragments.ExecuteTemplate(w, "articles", data); err != nil {
		return fmt.Errorf("failed to render articles: %w", err)
	}
	return nil
}
