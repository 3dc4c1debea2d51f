package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "keygen":
		return runKeygen(args[2:])
	case "hash":
		return runHash(args[2:])
	case "sign":
		return runSign(args[2:])
	case "verify":
		return runVerify(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "filechain"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s keygen --private <file> --public <file> [--alg rsa|ecdsa|ed25519] [--bits 2048]\n", name)
	fmt.Fprintf(os.Stderr, "  %s hash --in <file> [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s sign --block <block.json> --key <private.pem> --signer-id <id> [--encoding length-prefixed|legacy] [--binding index|identity] [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s verify --block <block.json> --signature <b64> --pubkey <public.pem> [--encoding length-prefixed|legacy] [--binding index|identity]\n", name)
}

func writeOutput(path string, payload []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(payload)
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}
