package cborutil

import (
	"bytes"
	"encoding/hex"
	"io"

	logging "github.com/ipfs/go-log/v2"
	cbg "github.com/whyrusleeping/cbor-gen"
)

var log = logging.Logger("cborrrpc")

const Debug = false

func init() {
	if Debug {
		log.Warn("CBOR-RPC Debugging enabled")
	}
}

func WriteCborRPC(w io.Writer, obj cbg.CBORMarshaler) error {
	if !Debug {
		return obj.MarshalCBOR(w)
	}

	var buf bytes.Buffer
	if err := obj.MarshalCBOR(&buf); err != nil {
		return err
	}
	log.Infof("> %s", hex.EncodeToString(buf.Bytes()))
	_, err := w.Write(buf.Bytes())
	return err
}

func ReadCborRPC(r io.Reader, out cbg.CBORUnmarshaler) error {
	return out.UnmarshalCBOR(r)
}

func Dump(obj cbg.CBORMarshaler) ([]byte, error) {
	var out bytes.Buffer
	if err := WriteCborRPC(&out, obj); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Load decodes data into out and rejects trailing bytes.
func Load(data []byte, out cbg.CBORUnmarshaler) error {
	r := bytes.NewReader(data)
	if err := ReadCborRPC(r, out); err != nil {
		return err
	}
	if r.Len() != 0 {
		return ErrTrailingBytes
	}
	return nil
}
