package session

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
)

const (
	identityFormatVersionCurrent = 1
)

var errFieldTooLong = errors.New("identity field too long")

// Encode serializes id into the compact versioned binary format.
func Encode(id *Identity) ([]byte, error) {
	if id == nil {
		return nil, errors.New("nil identity")
	}

	var buf bytes.Buffer
	buf.WriteByte(identityFormatVersionCurrent)

	for _, field := range []string{id.Subject, id.Email, id.DisplayName, id.Role} {
		if len(field) > 255 {
			return nil, errFieldTooLong
		}
		buf.WriteByte(byte(len(field)))
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

// Decode parses data produced by Encode.
func Decode(data []byte) (*Identity, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != identityFormatVersionCurrent {
		return nil, errors.New("invalid identity version")
	}

	fields := make([]string, 4)
	for i := range fields {
		n, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		value := make([]byte, n)
		if _, err := io.ReadFull(reader, value); err != nil {
			return nil, err
		}
		fields[i] = string(value)
	}

	id := &Identity{
		Subject:     fields[0],
		Email:       fields[1],
		DisplayName: fields[2],
		Role:        fields[3],
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing identity bytes")
	}

	return id, nil
}

// EncodeKey is Encode followed by base64url, producing a text session key.
func EncodeKey(id *Identity) (string, error) {
	raw, err := Encode(id)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeKey reverses EncodeKey.
func DecodeKey(key string) (*Identity, error) {
	raw, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}
