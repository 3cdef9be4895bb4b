package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/injunweb/injunctl/internal/config"
	"github.com/injunweb/injunctl/internal/domain"
)

// render writes v as JSON or YAML, or calls text for the human format.
func (c *cli) render(v any, text func(io.Writer) error) error {
	switch c.cfg.Output {
	case config.OutputJSON:
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.OutputYAML:
		enc := yaml.NewEncoder(c.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(c.stdout)
	}
}

// message prints a confirmation in text mode only, keeping machine output
// clean.
func (c *cli) message(format string, args ...any) {
	if c.cfg.Output != config.OutputText {
		return
	}
	fprintf(c.stdout, format+"\n", args...)
}

func table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

type field struct {
	label string
	value string
}

func fields(w io.Writer, fs []field) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range fs {
		fmt.Fprintf(tw, "%s:\t%s\n", f.label, f.value)
	}
	return tw.Flush()
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func applicationRows(apps []domain.Application, withOwner bool) [][]string {
	rows := make([][]string, 0, len(apps))
	for _, app := range apps {
		row := []string{app.ID, app.Name, app.Status, orDash(app.PrimaryHostname), orDash(app.Branch)}
		if withOwner {
			row = append(row, orDash(app.OwnerUsername))
		}
		rows = append(rows, append(row, ago(app.CreatedAt)))
	}
	return rows
}

func writeApplications(w io.Writer, apps []domain.Application, withOwner bool) error {
	if len(apps) == 0 {
		fprintln(w, "No applications.")
		return nil
	}
	header := []string{"ID", "NAME", "STATUS", "HOSTNAME", "BRANCH"}
	if withOwner {
		header = append(header, "OWNER")
	}
	return table(w, append(header, "CREATED"), applicationRows(apps, withOwner))
}

func writeApplication(w io.Writer, app domain.Application) error {
	fs := []field{
		{"ID", app.ID},
		{"Name", app.Name},
		{"Status", app.Status},
		{"Git URL", app.GitURL},
		{"Branch", orDash(app.Branch)},
		{"Port", strconv.Itoa(app.Port)},
		{"Primary hostname", orDash(app.PrimaryHostname)},
		{"Hostnames", orDash(strings.Join(app.ExtraHostnames, ", "))},
	}
	if app.OwnerUsername != "" {
		fs = append(fs, field{"Owner", app.OwnerUsername})
	}
	fs = append(fs,
		field{"Created", ago(app.CreatedAt)},
		field{"Description", orDash(app.Description)},
	)
	return fields(w, fs)
}

func writeUser(w io.Writer, u domain.User) error {
	return fields(w, []field{
		{"ID", u.ID},
		{"Username", u.Username},
		{"Email", orDash(u.Email)},
		{"Admin", yesNo(u.IsAdmin)},
		{"Joined", ago(u.CreatedAt)},
	})
}

func writeUsers(w io.Writer, users []domain.User) error {
	if len(users) == 0 {
		fprintln(w, "No users.")
		return nil
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.ID, u.Username, orDash(u.Email), yesNo(u.IsAdmin), ago(u.CreatedAt)})
	}
	return table(w, []string{"ID", "USERNAME", "EMAIL", "ADMIN", "JOINED"}, rows)
}

func writeEnvironment(w io.Writer, vars []domain.EnvVar) error {
	if len(vars) == 0 {
		fprintln(w, "No environment variables.")
		return nil
	}
	rows := make([][]string, 0, len(vars))
	for _, v := range vars {
		rows = append(rows, []string{v.Key, v.Value})
	}
	return table(w, []string{"KEY", "VALUE"}, rows)
}

func writeNotifications(w io.Writer, list domain.NotificationList) error {
	fprintf(w, "%d unread\n", list.UnreadCount)
	if len(list.Notifications) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(list.Notifications))
	for _, n := range list.Notifications {
		mark := "*"
		if n.IsRead {
			mark = ""
		}
		rows = append(rows, []string{mark, n.ID, ago(n.CreatedAt), n.Message})
	}
	return table(w, []string{"", "ID", "RECEIVED", "MESSAGE"}, rows)
}
