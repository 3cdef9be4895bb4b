package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/injunweb/injunctl/internal/app"
	"github.com/injunweb/injunctl/internal/config"
	"github.com/injunweb/injunctl/internal/domain"
	"github.com/injunweb/injunctl/internal/guard"
)

func (c *cli) runLogin(ctx context.Context, args []string) int {
	fs := c.flagSet("login", "login [-u USER] [--password-file FILE]")
	username := envOr("INJUNWEB_USERNAME", "")
	passwordFile := ""
	fs.StringVarP(&username, "username", "u", username, "Account username")
	fs.StringVar(&passwordFile, "password-file", passwordFile, `Read the password from a file ("-" for stdin)`)
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		return c.usage("login [-u USER] [--password-file FILE]")
	}

	return c.withApp(ctx, "login", guard.LoginPath, func(ctx context.Context, a *app.App) error {
		user, missing, err := resolveRequiredValue(c.reader(), c.stderr, username, c.interactive(), "Username: ")
		if err != nil {
			return err
		}
		if missing {
			return invalidf("missing --username")
		}
		password, err := c.readSecret("Password: ", passwordFile)
		if err != nil {
			return err
		}
		res, err := a.Auth.Login(ctx, user, password)
		if err != nil {
			return err
		}
		if claims, ok := a.Session.Claims(); ok && claims.Username != "" {
			user = claims.Username
		}
		c.message("Logged in as %s.", user)
		if res.Path != guard.LandingPath {
			c.message("Continue at %s", res.Path)
		}
		return nil
	})
}

func (c *cli) runRegister(ctx context.Context, args []string) int {
	const usage = "register -u USER --email EMAIL [--password-file FILE]"
	fs := c.flagSet("register", usage)
	var req domain.RegisterRequest
	passwordFile := ""
	fs.StringVarP(&req.Username, "username", "u", "", "Account username")
	fs.StringVar(&req.Email, "email", "", "Account email")
	fs.StringVar(&passwordFile, "password-file", passwordFile, `Read the password from a file ("-" for stdin)`)
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		return c.usage(usage)
	}

	return c.withApp(ctx, "register", "/register", func(ctx context.Context, a *app.App) error {
		reader := c.reader()
		var missing bool
		var err error
		req.Username, missing, err = resolveRequiredValue(reader, c.stderr, req.Username, c.interactive(), "Username: ")
		if err != nil {
			return err
		}
		if missing {
			return invalidf("missing --username")
		}
		req.Email, missing, err = resolveRequiredValue(reader, c.stderr, req.Email, c.interactive(), "Email: ")
		if err != nil {
			return err
		}
		if missing {
			return invalidf("missing --email")
		}
		if req.Password, err = c.readSecret("Password: ", passwordFile); err != nil {
			return err
		}
		if _, err := a.Auth.Register(ctx, req); err != nil {
			return err
		}
		c.message("Account %s created. Log in with `injunctl login -u %s`.", req.Username, req.Username)
		return nil
	})
}

func (c *cli) runLogout(ctx context.Context, args []string) int {
	if len(args) != 0 {
		return c.usage("logout")
	}
	return c.withApp(ctx, "logout", "", func(ctx context.Context, a *app.App) error {
		if _, err := a.Auth.Logout(ctx); err != nil {
			return err
		}
		c.message("Logged out.")
		return nil
	})
}

func (c *cli) runWhoami(ctx context.Context, args []string) int {
	if len(args) != 0 {
		return c.usage("whoami")
	}
	return c.withApp(ctx, "whoami", "/profile", func(ctx context.Context, a *app.App) error {
		me, err := a.Users.Me(ctx)
		if err != nil {
			return err
		}
		return c.render(me, func(w io.Writer) error {
			role := "user"
			if me.IsAdmin {
				role = "admin"
			}
			fprintf(w, "%s (%s)\n", me.Username, role)
			return nil
		})
	})
}

type statusView struct {
	APIURL    string     `json:"api_url" yaml:"api_url"`
	State     string     `json:"state" yaml:"state"`
	Username  string     `json:"username,omitempty" yaml:"username,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Location  string     `json:"location" yaml:"location"`
	CacheDB   string     `json:"cache_db,omitempty" yaml:"cache_db,omitempty"`
	CacheSize int64      `json:"cache_size,omitempty" yaml:"cache_size,omitempty"`
}

func (c *cli) runStatus(ctx context.Context, args []string) int {
	if len(args) != 0 {
		return c.usage("status")
	}
	return c.withApp(ctx, "status", "", func(ctx context.Context, a *app.App) error {
		v := statusView{
			APIURL:   a.API.BaseURL(),
			State:    a.Session.State().String(),
			Location: a.Nav.Current(),
		}
		if claims, ok := a.Session.Claims(); ok && a.Session.IsLoggedIn() {
			v.Username = claims.Username
			exp := claims.ExpiresAt
			v.ExpiresAt = &exp
		}
		if a.Config.CacheEnabled() {
			v.CacheDB = a.Config.CacheDB
			if info, err := os.Stat(a.Config.CacheDB); err == nil {
				v.CacheSize = info.Size()
			}
		}
		return c.render(v, func(w io.Writer) error {
			fs := []field{
				{"API", v.APIURL},
				{"Session", v.State},
			}
			if v.Username != "" {
				fs = append(fs, field{"User", v.Username})
			}
			if v.ExpiresAt != nil {
				fs = append(fs, field{"Expires", humanize.Time(*v.ExpiresAt)})
			}
			fs = append(fs, field{"Location", orDash(v.Location)})
			if v.CacheDB != "" {
				fs = append(fs, field{"Cache", v.CacheDB + " (" + humanize.Bytes(uint64(v.CacheSize)) + ")"})
			} else {
				fs = append(fs, field{"Cache", "memory only"})
			}
			return fields(w, fs)
		})
	})
}

func (c *cli) runProfile(ctx context.Context, args []string) int {
	if len(args) == 0 {
		return c.usage("profile show|update")
	}
	switch args[0] {
	case "show":
		if len(args) != 1 {
			return c.usage("profile show")
		}
		return c.withApp(ctx, "profile show", "/profile", func(ctx context.Context, a *app.App) error {
			me, err := a.Users.Me(ctx)
			if err != nil {
				return err
			}
			return c.render(me, func(w io.Writer) error { return writeUser(w, me) })
		})
	case "update":
		return c.runProfileUpdate(ctx, args[1:])
	default:
		return c.unknown("profile", args[0])
	}
}

func (c *cli) runProfileUpdate(ctx context.Context, args []string) int {
	const usage = "profile update [--username U] [--email E] [--password-file FILE]"
	fs := c.flagSet("profile update", usage)
	var req domain.UpdateUserRequest
	passwordFile := ""
	fs.StringVar(&req.Username, "username", "", "New username")
	fs.StringVar(&req.Email, "email", "", "New email")
	fs.StringVar(&passwordFile, "password-file", "", `Read a new password from a file ("-" for stdin)`)
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		return c.usage(usage)
	}

	return c.withApp(ctx, "profile update", "/profile", func(ctx context.Context, a *app.App) error {
		if fs.Changed("password-file") {
			pw, err := c.readSecret("New password: ", passwordFile)
			if err != nil {
				return err
			}
			req.Password = pw
		}
		if err := a.Users.UpdateProfile(ctx, req); err != nil {
			return err
		}
		me, err := a.Users.Me(ctx)
		if err != nil {
			return err
		}
		if c.cfg.Output != config.OutputText {
			return c.render(me, nil)
		}
		c.message("Profile updated.")
		return writeUser(c.stdout, me)
	})
}
