package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// emailBody is the data both message kinds render from.
type emailBody struct {
	Username string
	Intro    string
	Link     string
}

// htmlEmail renders the HTML part. Every interpolated value is escaped, so a
// username cannot inject markup into the message.
func htmlEmail(b emailBody) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<p>Hi %s,</p><p>%s</p><p><a href="%s">%s</a></p>`,
			templ.EscapeString(b.Username),
			templ.EscapeString(b.Intro),
			templ.EscapeString(b.Link),
			templ.EscapeString(b.Link),
		)
		return err
	})
}

func textEmail(b emailBody) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "Hi %s,\n\n%s\n\n%s\n", b.Username, b.Intro, b.Link)
		return err
	})
}

func render(ctx context.Context, tpl templ.Component) (string, error) {
	var sb strings.Builder
	if err := tpl.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// humanDuration formats whole hours as "24 hours" and anything else in
// minutes, which covers every TTL the config layer accepts.
func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return plural(int(d/time.Hour), "hour")
	}
	return plural(int(d/time.Minute), "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
