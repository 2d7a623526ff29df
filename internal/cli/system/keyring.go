package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/chime/internal/cli"
	"github.com/julianstephens/chime/internal/constants"
	"github.com/julianstephens/chime/internal/keyring"
	"github.com/julianstephens/chime/internal/storage/postgres"
)

// secretKind describes one account chime keeps in the OS keyring.
type secretKind struct {
	account  string
	label    string
	validate func(string) error
	mask     func(string) string
	usage    string
}

var secretKinds = map[string]secretKind{
	"database": {
		account:  keyring.AccountDatabase,
		label:    "PostgreSQL connection string",
		validate: validateConnString,
		mask:     maskPassword,
		usage:    "set database.use_keyring: true in the config file to use it",
	},
	"redis": {
		account: keyring.AccountRedis,
		label:   "Redis password",
		mask:    func(string) string { return "****" },
		usage:   "it is used whenever redis.password is empty",
	},
}

// secretOrder fixes the order status reports in.
var secretOrder = []string{"database", "redis"}

// AccountFlag selects the keyring account a command acts on.
type AccountFlag struct {
	Account string `short:"a" enum:"database,redis" default:"database" help:"Which secret to act on (database or redis)."`
}

func (f AccountFlag) kind() secretKind {
	if k, ok := secretKinds[f.Account]; ok {
		return k
	}
	return secretKinds["database"]
}

type KeyringSetCmd struct {
	AccountFlag `embed:""`
	Secret string `arg:"" help:"Secret to store: a PostgreSQL connection string, or the Redis password with --account redis."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	k := cmd.kind()
	if k.validate != nil {
		if err := k.validate(cmd.Secret); err != nil {
			return err
		}
	}
	if err := keyring.Set(k.account, cmd.Secret); err != nil {
		return err
	}
	fmt.Printf("✓ %s stored in the OS keyring\n", k.label)
	fmt.Printf("  %s\n", k.usage)
	return nil
}

// validateConnString accepts embedded passwords, unlike the config file.
func validateConnString(connStr string) error {
	if !postgres.IsConnString(connStr) && !strings.Contains(connStr, "host=") {
		return errors.New("connection string must be a postgres:// URL or a host=... DSN")
	}
	_, err := postgres.ValidateConnString(connStr)
	switch {
	case err == nil:
	case errors.Is(err, postgres.ErrEmbeddedCredentials):
		fmt.Println(cli.WarningStyle.Render("⚠ The connection string embeds a password; it is stored as-is."))
	default:
		return fmt.Errorf("invalid connection string: %w", err)
	}
	return nil
}

type KeyringGetCmd struct {
	AccountFlag `embed:""`
}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	k := cmd.kind()
	secret, err := keyring.Get(k.account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s in the keyring, use '%s keyring set --account %s' to store one", k.label, constants.AppName, cmd.Account)
		}
		return err
	}
	fmt.Printf("%s: %s\n", k.label, k.mask(secret))
	return nil
}

type KeyringDeleteCmd struct {
	AccountFlag `embed:""`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	k := cmd.kind()
	if err := keyring.Delete(k.account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s in the keyring", k.label)
		}
		return err
	}
	fmt.Printf("✓ %s deleted from the OS keyring\n", k.label)
	return nil
}

type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		fmt.Println(cli.DangerStyle.Render("✗ OS keyring is not available on this system"))
		return keyring.ErrKeyringUnavailable
	}
	fmt.Println(cli.SuccessStyle.Render("✓ OS keyring is available"))

	for _, name := range secretOrder {
		k := secretKinds[name]
		_, err := keyring.Get(k.account)
		switch {
		case err == nil:
			fmt.Printf("  %s: stored\n", k.label)
		case errors.Is(err, keyring.ErrNotFound):
			fmt.Printf("  %s: %s\n", k.label, cli.MutedStyle.Render("not stored"))
		default:
			fmt.Printf("  %s: %s\n", k.label, cli.DangerStyle.Render(err.Error()))
		}
	}
	return nil
}

// maskPassword hides the password of a URL or key=value connection string.
func maskPassword(connStr string) string {
	if postgres.IsConnString(connStr) {
		scheme, rest, _ := strings.Cut(connStr, "://")
		// the last @ separates user info from host; passwords may contain @
		if at := strings.LastIndex(rest, "@"); at != -1 {
			if user, _, ok := strings.Cut(rest[:at], ":"); ok {
				return scheme + "://" + user + ":****" + rest[at:]
			}
		}
		return connStr
	}

	parts := strings.Fields(connStr)
	for i, part := range parts {
		if strings.HasPrefix(part, "password=") {
			parts[i] = "password=****"
		}
	}
	return strings.Join(parts, " ")
}
