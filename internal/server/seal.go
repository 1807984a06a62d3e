package server

import (
	"fmt"
	"io"

	"filippo.io/age"
)

// Sealer encrypts backup streams to an age recipient. Only the public
// key lives on the server; the matching identity stays with whoever
// restores the backups.
type Sealer struct {
	recipient *age.X25519Recipient
}

func NewSealer(recipient string) (*Sealer, error) {
	r, err := age.ParseX25519Recipient(recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to parse age recipient: %w", err)
	}
	return &Sealer{recipient: r}, nil
}

// Seal encrypts everything from src into dst.
func (s *Sealer) Seal(dst io.Writer, src io.Reader) error {
	w, err := age.Encrypt(dst, s.recipient)
	if err != nil {
		return fmt.Errorf("failed to create encrypted writer: %w", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("failed to encrypt data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize encryption: %w", err)
	}
	return nil
}
