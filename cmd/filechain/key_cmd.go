package main

import (
	"flag"
	"fmt"
	"os"

	"filechain/internal/infra/crypto"
)

func runKeygen(args []string) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var privatePath string
	var publicPath string
	var alg string
	var bits int

	fs.StringVar(&privatePath, "private", "", "private key output path")
	fs.StringVar(&publicPath, "public", "", "public key output path")
	fs.StringVar(&alg, "alg", "rsa", "key algorithm (rsa, ecdsa, ed25519)")
	fs.IntVar(&bits, "bits", 2048, "rsa modulus size")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if privatePath == "" || publicPath == "" {
		fmt.Fprintln(os.Stderr, "keygen requires --private and --public")
		return 1
	}

	signer, err := crypto.GenerateKey(alg, bits)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		return 1
	}
	privatePEM, err := crypto.MarshalPrivateKeyPEM(signer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal private key: %v\n", err)
		return 1
	}
	publicPEM, err := crypto.MarshalPublicKeyPEM(signer.Public())
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal public key: %v\n", err)
		return 1
	}
	if err := os.WriteFile(privatePath, []byte(privatePEM), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "write private key: %v\n", err)
		return 1
	}
	if err := os.WriteFile(publicPath, []byte(publicPEM), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write public key: %v\n", err)
		return 1
	}
	return 0
}

func runHash(args []string) int {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath string
	var outPath string
	fs.StringVar(&inPath, "in", "", "input file")
	fs.StringVar(&outPath, "out", "", "output path (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" {
		fmt.Fprintln(os.Stderr, "hash requires --in")
		return 1
	}
	digest, err := crypto.DigestFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash: %v\n", err)
		return 1
	}
	if err := writeOutput(outPath, []byte(digest+"\n")); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}
