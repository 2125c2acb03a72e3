package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/dash/internal/shared"
	"github.com/urfave/cli/v3"
)

func secretArg(cmd *cli.Command) (string, error) {
	name := cmd.StringArg("name")
	if name == "" {
		return "", fmt.Errorf("%w: secret name is required (one of %s)", shared.ErrMissingArgument, strings.Join(shared.SecretNames(), ", "))
	}
	return name, nil
}

// KeyringSet stores a secret. Without --value the first line of input is used so the secret
// stays out of shell history.
func (r *Runner) KeyringSet(ctx context.Context, cmd *cli.Command) error {
	name, err := secretArg(cmd)
	if err != nil {
		return err
	}

	value := cmd.String("value")
	if !cmd.IsSet("value") {
		r.writePlain("Enter value for %s: ", name)
		line, err := bufio.NewReader(r.input).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("%w: no value read from input", shared.ErrMissingArgument)
		}
		value = strings.TrimSpace(line)
		r.writePlain("\n")
	}

	if err := shared.SetSecret(name, value); err != nil {
		return err
	}
	return r.writePlain("✓ Stored %s in the %s keyring\n", name, shared.KeyringService)
}

// KeyringGet prints a stored secret, masked by default.
func (r *Runner) KeyringGet(ctx context.Context, cmd *cli.Command) error {
	name, err := secretArg(cmd)
	if err != nil {
		return err
	}

	value, err := shared.GetSecret(name)
	if err != nil {
		return err
	}
	if !cmd.Bool("show") {
		value = mask(value)
	}
	return r.writePlain("%s\n", value)
}

// KeyringDelete removes a stored secret.
func (r *Runner) KeyringDelete(ctx context.Context, cmd *cli.Command) error {
	name, err := secretArg(cmd)
	if err != nil {
		return err
	}

	if err := shared.DeleteSecret(name); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s\n", name)
}

// KeyringList reports which secrets are stored.
func (r *Runner) KeyringList(ctx context.Context, cmd *cli.Command) error {
	for _, name := range shared.SecretNames() {
		status := "stored"
		if _, err := shared.GetSecret(name); errors.Is(err, shared.ErrSecretNotFound) {
			status = "-"
		} else if err != nil {
			return err
		}
		r.writePlain("%-24s %s\n", name, status)
	}
	return nil
}

// mask keeps the last four characters of long values.
func mask(v string) string {
	if len(v) <= 8 {
		return strings.Repeat("*", len(v))
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}
