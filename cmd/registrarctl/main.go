package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/urfave/cli/v2"

	"registrar/internal/envelope"
	"registrar/pkg/domain"
)

// keyFile is the on-disk form of a signing key.
type keyFile struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "registrarctl",
		Usage:  "keys, addresses and signed envelopes for the registrar API",
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:  "keygen",
				Usage: "generate an ed25519 signing key",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Usage: "key file path, stdout when empty", EnvVars: []string{"REGISTRARCTL_KEY_OUT"}},
				},
				Action: keygen,
			},
			{
				Name:  "address",
				Usage: "derive the config account and, with --name, the domain account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "program", Required: true, Usage: "program identity", EnvVars: []string{"REGISTRAR_PROGRAM_ID"}},
					&cli.StringFlag{Name: "name", Usage: "domain name"},
				},
				Action: address,
			},
			{
				Name:  "sign",
				Usage: "seal an operation into a signed envelope",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "key", Required: true, Usage: "key file, repeat for every signer", EnvVars: []string{"REGISTRARCTL_KEYS"}},
					&cli.StringFlag{Name: "program", Required: true, Usage: "program identity the authorization is valid for", EnvVars: []string{"REGISTRAR_PROGRAM_ID"}},
					&cli.StringFlag{Name: "op", Required: true, Usage: "operation name"},
					&cli.StringFlag{Name: "args", Value: "{}", Usage: "operation arguments as JSON"},
				},
				Action: sign,
			},
		},
	}
}

func keygen(c *cli.Context) error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	id, err := domain.IdentityFromPublicKey(pub)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(keyFile{Identity: id.String(), Secret: base58.Encode(priv)}, "", "  ")
	if err != nil {
		return err
	}
	path := c.String("out")
	if path == "" {
		_, err = fmt.Fprintln(c.App.Writer, string(raw))
		return err
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	_, err = fmt.Fprintln(c.App.Writer, id.String())
	return err
}

func address(c *cli.Context) error {
	program, err := domain.ParseIdentity(c.String("program"))
	if err != nil {
		return fmt.Errorf("program: %w", err)
	}
	out := map[string]string{
		"program": program.String(),
		"config":  domain.ConfigAddress(program).String(),
	}
	if name := c.String("name"); name != "" {
		out["domain"] = domain.DomainAddress(program, name).String()
	}
	return writeJSON(c.App.Writer, out)
}

func sign(c *cli.Context) error {
	if !json.Valid([]byte(c.String("args"))) {
		return errors.New("args must be valid JSON")
	}
	program, err := domain.ParseIdentity(c.String("program"))
	if err != nil {
		return fmt.Errorf("program: %w", err)
	}
	var keys []ed25519.PrivateKey
	for _, path := range c.StringSlice("key") {
		key, err := loadKey(path)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}
	env, err := envelope.Seal(program, c.String("op"), json.RawMessage(c.String("args")), time.Now(), keys...)
	if err != nil {
		return fmt.Errorf("seal envelope: %w", err)
	}
	return writeJSON(c.App.Writer, env)
}

func loadKey(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(raw, &kf); err != nil {
		return nil, fmt.Errorf("decode key file %s: %w", path, err)
	}
	secret := base58.Decode(kf.Secret)
	if len(secret) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("key file %s: secret must be %d bytes", path, ed25519.PrivateKeySize)
	}
	return ed25519.PrivateKey(secret), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
