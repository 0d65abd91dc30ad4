// osokey manages the Ed25519 keys of council validators: generation,
// inspection, and message signing for harnesses.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "osokey",
		Usage: "oso validator key manager",
		Commands: []*cli.Command{
			commandGenerate,
			commandInspect,
			commandSign,
			commandVerify,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var commandGenerate = &cli.Command{
	Name:      "generate",
	Usage:     "generate a new validator keypair",
	ArgsUsage: "<keyfile>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return fmt.Errorf("usage: osokey generate <keyfile>")
		}
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return err
		}
		if err := os.WriteFile(ctx.Args().First(), []byte(hex.EncodeToString(priv.Seed())), 0600); err != nil {
			return err
		}
		fmt.Printf("public key: %s\n", hex.EncodeToString(pub))
		return nil
	},
}

var commandInspect = &cli.Command{
	Name:      "inspect",
	Usage:     "print the public key for a keyfile",
	ArgsUsage: "<keyfile>",
	Action: func(ctx *cli.Context) error {
		priv, err := loadKey(ctx.Args().First())
		if err != nil {
			return err
		}
		pub := priv.Public().(ed25519.PublicKey)
		fmt.Printf("public key: %s\n", hex.EncodeToString(pub))
		return nil
	},
}

var commandSign = &cli.Command{
	Name:      "signmessage",
	Usage:     "sign an arbitrary message with a keyfile",
	ArgsUsage: "<keyfile> <message>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 2 {
			return fmt.Errorf("usage: osokey signmessage <keyfile> <message>")
		}
		priv, err := loadKey(ctx.Args().First())
		if err != nil {
			return err
		}
		sig := ed25519.Sign(priv, []byte(ctx.Args().Get(1)))
		fmt.Printf("signature: %s\n", hex.EncodeToString(sig))
		return nil
	},
}

var commandVerify = &cli.Command{
	Name:      "verifymessage",
	Usage:     "verify a signature against a hex public key",
	ArgsUsage: "<pubkey-hex> <message> <signature-hex>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 3 {
			return fmt.Errorf("usage: osokey verifymessage <pubkey-hex> <message> <signature-hex>")
		}
		pub, err := hex.DecodeString(ctx.Args().Get(0))
		if err != nil || len(pub) != ed25519.PublicKeySize {
			return fmt.Errorf("bad public key")
		}
		sig, err := hex.DecodeString(ctx.Args().Get(2))
		if err != nil {
			return fmt.Errorf("bad signature encoding")
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), []byte(ctx.Args().Get(1)), sig) {
			return fmt.Errorf("signature does not verify")
		}
		fmt.Println("signature verifies")
		return nil
	},
}

func loadKey(path string) (ed25519.PrivateKey, error) {
	if path == "" {
		return nil, fmt.Errorf("keyfile path required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	seed, err := hex.DecodeString(string(raw))
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%s: malformed keyfile", path)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
