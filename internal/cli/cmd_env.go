package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/injunweb/injunctl/internal/app"
	"github.com/injunweb/injunctl/internal/domain"
	"github.com/injunweb/injunctl/internal/resource"
)

func (c *cli) runEnv(ctx context.Context, args []string) int {
	if len(args) == 0 {
		return c.usage("env show|add|set|unset|import ID ...")
	}
	switch args[0] {
	case "show", "list":
		if len(args) != 2 {
			return c.usage("env show ID")
		}
		id := args[1]
		return c.withAppAt(ctx, "env show", "application", "appId", id, func(ctx context.Context, a *app.App) error {
			vars, err := a.Environments.Get(ctx, id)
			if err != nil {
				return err
			}
			return c.render(vars, func(w io.Writer) error { return writeEnvironment(w, vars) })
		})
	case "add", "set":
		op := args[0]
		if len(args) < 3 {
			return c.usage("env " + op + " ID KEY=VALUE...")
		}
		id := args[1]
		vars, err := parseAssignments(args[2:])
		if err != nil {
			return c.fail("env "+op, nil, err)
		}
		return c.withAppAt(ctx, "env "+op, "application", "appId", id, func(ctx context.Context, a *app.App) error {
			return c.editEnv(ctx, a, id, func(ed *resource.Editor) error {
				for _, v := range vars {
					apply := ed.Set
					if op == "add" {
						apply = ed.Add
					}
					if err := apply(v.Key, v.Value); err != nil {
						return fmt.Errorf("%s: %w", v.Key, err)
					}
				}
				return nil
			})
		})
	case "unset", "rm":
		if len(args) < 3 {
			return c.usage("env unset ID KEY...")
		}
		id, keys := args[1], args[2:]
		return c.withAppAt(ctx, "env unset", "application", "appId", id, func(ctx context.Context, a *app.App) error {
			return c.editEnv(ctx, a, id, func(ed *resource.Editor) error {
				for _, k := range keys {
					if err := ed.Delete(k); err != nil {
						return fmt.Errorf("%s: %w", k, err)
					}
				}
				return nil
			})
		})
	case "import":
		return c.runEnvImport(ctx, args[1:])
	default:
		return c.unknown("env", args[0])
	}
}

func (c *cli) runEnvImport(ctx context.Context, args []string) int {
	const usage = "env import ID FILE [--replace]"
	fs := c.flagSet("env import", usage)
	replace := false
	fs.BoolVar(&replace, "replace", replace, "Replace the whole set instead of merging")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	if fs.NArg() != 2 {
		return c.usage(usage)
	}
	id, file := fs.Arg(0), fs.Arg(1)
	vars, err := readEnvFile(file)
	if err != nil {
		return c.fail("env import", nil, fmt.Errorf("read %s: %w", file, err))
	}
	return c.withAppAt(ctx, "env import", "application", "appId", id, func(ctx context.Context, a *app.App) error {
		if replace {
			if err := a.Environments.Replace(ctx, id, vars); err != nil {
				return err
			}
			c.message("Environment replaced with %d variables.", len(vars))
			return nil
		}
		return c.editEnv(ctx, a, id, func(ed *resource.Editor) error {
			for _, v := range vars {
				if err := ed.Set(v.Key, v.Value); err != nil {
					return fmt.Errorf("%s: %w", v.Key, err)
				}
			}
			return nil
		})
	})
}

// editEnv applies edit to a fresh editor and saves it. Nothing is sent when
// edit fails or changes nothing.
func (c *cli) editEnv(ctx context.Context, a *app.App, id string, edit func(*resource.Editor) error) error {
	ed, err := a.Environments.Edit(ctx, id)
	if err != nil {
		return err
	}
	if err := edit(ed); err != nil {
		if errors.Is(err, domain.ErrKeyExists) || errors.Is(err, domain.ErrKeyNotFound) {
			return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		return err
	}
	if !ed.Dirty() {
		c.message("No changes.")
		return nil
	}
	if err := ed.Save(ctx); err != nil {
		return err
	}
	c.message("Environment saved (%d variables).", len(ed.Vars()))
	return nil
}
