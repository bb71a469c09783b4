package main

import (
	"bufio"
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/ashureev/wazobia-session/internal/domain"
	"github.com/ashureev/wazobia-session/internal/preference"
	"github.com/ashureev/wazobia-session/internal/quota"
	"github.com/ashureev/wazobia-session/internal/session"
	"github.com/ashureev/wazobia-session/internal/translation"
)

const replHelp = `Commands:
  /lang <code>            toggle a reply language (ha, yo, pcm, en)
  /lang                   show the current reply preference
  /translate <n> <code>   translate message n
  /clear <n>              hide the translation of message n
  /detect <text>          detect the language of text
  /login, /signup         sign in for unlimited messages
  /logout                 sign out
  /quota                  show remaining free messages
  /help                   show this help
  /quit                   leave`

type repl struct {
	app     *app
	in      *bufio.Scanner
	prompts <-chan session.PromptReason
}

func (r *repl) run(ctx context.Context) error {
	r.app.printf("Type a message, or /help for commands.\n")

	r.app.session.Preferences().OnChange(func(p preference.Preference) {
		r.app.printf("Replies: %s\n", describePreference(p))
	})

	for {
		r.drainPrompts(ctx)
		r.app.printf("> ")
		if !r.in.Scan() {
			r.app.printf("\n")
			return r.in.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := r.command(ctx, line); quit {
				return nil
			}
			continue
		}
		r.send(ctx, line)
	}
}

func (r *repl) send(ctx context.Context, text string) {
	res, err := r.app.session.Send(ctx, text)
	switch {
	case errors.Is(err, quota.ErrQuotaExceeded):
		r.app.printf("You have used all %d free messages. Sign in with /login or /signup to keep chatting.\n", quota.Limit)
		return
	case err != nil:
		r.app.printf("Could not send: %v\n", err)
		return
	}

	r.printMessage(res.Reply)
	if res.Quota.Low {
		r.app.printf("(%d free messages left)\n", res.Quota.Remaining)
	}
}

func (r *repl) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		r.app.printf("%s\n", replHelp)
	case "/lang":
		if len(args) == 0 {
			r.app.printf("Replies: %s\n", describePreference(r.app.session.Preferences().Current()))
			return false
		}
		if _, err := r.app.session.TogglePreference(domain.LanguageCode(args[0])); err != nil {
			r.app.printf("%v\n", err)
		}
	case "/translate":
		r.translate(ctx, args)
	case "/clear":
		msg, ok := r.messageArg(args)
		if ok {
			r.app.session.ClearTranslation(msg.ID)
			r.app.printf("Translation hidden.\n")
		}
	case "/detect":
		r.detect(ctx, strings.Join(args, " "))
	case "/login":
		if err := r.app.login(ctx, r.in, &credentialFlags{}); err != nil {
			r.app.printf("%v\n", err)
		}
	case "/signup":
		if err := r.app.signup(ctx, r.in, &credentialFlags{}); err != nil {
			r.app.printf("%v\n", err)
		}
	case "/logout":
		if err := r.app.logout(ctx); err != nil {
			r.app.printf("%v\n", err)
		}
	case "/quota":
		if r.app.session.Auth().Session().Authenticated() {
			r.app.printf("Signed in: unlimited messages.\n")
		} else {
			r.app.printf("%d of %d free messages left.\n", r.app.session.Quota().Remaining(), quota.Limit)
		}
	default:
		r.app.printf("Unknown command %s. Type /help.\n", name)
	}
	return false
}

func (r *repl) translate(ctx context.Context, args []string) {
	if len(args) != 2 {
		r.app.printf("Usage: /translate <n> <code>\n")
		return
	}
	msg, ok := r.messageArg(args[:1])
	if !ok {
		return
	}

	r.app.printf("Translating...\n")
	ov, err := r.app.session.Translate(ctx, msg.ID, domain.LanguageCode(args[1]))
	switch {
	case errors.Is(err, translation.ErrSameLanguage):
		r.app.printf("That message is already in %s.\n", domain.LookupLanguage(domain.LanguageCode(args[1])).Name)
		return
	case err != nil:
		r.app.printf("%v\n", err)
		return
	}

	switch ov.Status {
	case translation.Done:
		lang := domain.LookupLanguage(ov.TargetLanguage)
		r.app.printf("  %s %s: %s\n", lang.Flag, lang.Name, ov.Text)
	case translation.Failed:
		r.app.printf("  %s\n", ov.Text)
	}
}

func (r *repl) detect(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		r.app.printf("Usage: /detect <text>\n")
		return
	}
	d, err := r.app.session.DetectLanguage(ctx, text)
	if err != nil {
		r.app.printf("%v\n", err)
		return
	}
	lang := domain.LookupLanguage(d.Language)
	r.app.printf("%s %s (%.0f%% confident)\n", lang.Flag, lang.Name, d.Confidence*100)
}

// messageArg resolves a 1-based message number.
func (r *repl) messageArg(args []string) (domain.Message, bool) {
	if len(args) == 0 {
		r.app.printf("Missing message number.\n")
		return domain.Message{}, false
	}
	n, err := strconv.Atoi(args[0])
	msgs := r.app.session.Messages()
	if err != nil || n < 1 || n > len(msgs) {
		r.app.printf("No message %s.\n", args[0])
		return domain.Message{}, false
	}
	return msgs[n-1], true
}

func (r *repl) printMessage(m domain.Message) {
	n := len(r.app.session.Messages())
	for i, msg := range r.app.session.Messages() {
		if msg.ID == m.ID {
			n = i + 1
			break
		}
	}
	if m.Language != "" {
		lang := domain.LookupLanguage(m.Language)
		r.app.printf("[%d] %s %s\n", n, lang.Flag, m.Content)
		return
	}
	r.app.printf("[%d] %s\n", n, m.Content)
}

func (r *repl) drainPrompts(ctx context.Context) {
	for {
		select {
		case reason := <-r.prompts:
			if reason == session.PromptLimitReached {
				r.app.printf("That was your last free message. Sign in with /login or /signup to continue.\n")
			}
		case <-ctx.Done():
			return
		default:
			return
		}
	}
}

func describePreference(p preference.Preference) string {
	if p.Mode == preference.ModeAuto {
		return "auto (match your language)"
	}
	names := make([]string, 0, len(p.Selected))
	for _, code := range p.Selected {
		names = append(names, domain.LookupLanguage(code).Name)
	}
	return p.Mode.String() + ": " + strings.Join(names, ", ")
}
