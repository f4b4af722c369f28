package cborutil

import (
	"io"

	"github.com/gagliardetto/solana-go"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"
)

// MaxBytesLen bounds byte and text strings read from account data.
const MaxBytesLen = 1 << 16

var ErrTrailingBytes = xerrors.New("trailing bytes after cbor object")

func WriteTupleHeader(w io.Writer, n int) error {
	return cbg.CborWriteHeader(w, cbg.MajArray, uint64(n))
}

func ReadTupleHeader(cr *cbg.CborReader, n int) error {
	maj, l, err := cr.ReadHeader()
	if err != nil {
		return err
	}
	if maj != cbg.MajArray {
		return xerrors.Errorf("cbor input should be of type array")
	}
	if l != uint64(n) {
		return xerrors.Errorf("cbor input had wrong number of fields: %d != %d", l, n)
	}
	return nil
}

func ReadArrayHeader(cr *cbg.CborReader, max uint64) (uint64, error) {
	maj, l, err := cr.ReadHeader()
	if err != nil {
		return 0, err
	}
	if maj != cbg.MajArray {
		return 0, xerrors.Errorf("expected cbor array")
	}
	if l > max {
		return 0, xerrors.Errorf("array too large (%d > %d)", l, max)
	}
	return l, nil
}

func WriteUint(w io.Writer, v uint64) error {
	return cbg.CborWriteHeader(w, cbg.MajUnsignedInt, v)
}

func ReadUint(cr *cbg.CborReader) (uint64, error) {
	maj, v, err := cr.ReadHeader()
	if err != nil {
		return 0, err
	}
	if maj != cbg.MajUnsignedInt {
		return 0, xerrors.Errorf("wrong type for uint64 field: %d", maj)
	}
	return v, nil
}

func WriteInt64(w io.Writer, v int64) error {
	if v >= 0 {
		return cbg.CborWriteHeader(w, cbg.MajUnsignedInt, uint64(v))
	}
	return cbg.CborWriteHeader(w, cbg.MajNegativeInt, uint64(-v-1))
}

func ReadInt64(cr *cbg.CborReader) (int64, error) {
	maj, v, err := cr.ReadHeader()
	if err != nil {
		return 0, err
	}
	switch maj {
	case cbg.MajUnsignedInt:
		if v > 1<<63-1 {
			return 0, xerrors.Errorf("int64 positive overflow")
		}
		return int64(v), nil
	case cbg.MajNegativeInt:
		if v > 1<<63-1 {
			return 0, xerrors.Errorf("int64 negative overflow")
		}
		return -1 - int64(v), nil
	default:
		return 0, xerrors.Errorf("wrong type for int64 field: %d", maj)
	}
}

func WriteBool(w io.Writer, b bool) error {
	var v uint64
	if b {
		v = 1
	}
	return WriteUint(w, v)
}

func ReadBool(cr *cbg.CborReader) (bool, error) {
	v, err := ReadUint(cr)
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, xerrors.Errorf("bool out of range: %d", v)
	}
}

func WriteBytes(w io.Writer, b []byte) error {
	return cbg.WriteByteArray(w, b)
}

func ReadBytes(cr *cbg.CborReader) ([]byte, error) {
	maj, l, err := cr.ReadHeader()
	if err != nil {
		return nil, err
	}
	if maj != cbg.MajByteString {
		return nil, xerrors.Errorf("expected byte array")
	}
	if l > MaxBytesLen {
		return nil, xerrors.Errorf("byte array too large (%d)", l)
	}
	buf := make([]byte, l)
	if _, err := io.ReadFull(cr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func WriteString(w io.Writer, s string) error {
	if err := cbg.CborWriteHeader(w, cbg.MajTextString, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func ReadString(cr *cbg.CborReader) (string, error) {
	maj, l, err := cr.ReadHeader()
	if err != nil {
		return "", err
	}
	if maj != cbg.MajTextString {
		return "", xerrors.Errorf("expected text string")
	}
	if l > MaxBytesLen {
		return "", xerrors.Errorf("string too large (%d)", l)
	}
	buf := make([]byte, l)
	if _, err := io.ReadFull(cr, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func WriteKey(w io.Writer, k solana.PublicKey) error {
	return cbg.WriteByteArray(w, k[:])
}

func ReadKey(cr *cbg.CborReader) (solana.PublicKey, error) {
	b, err := ReadBytes(cr)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if len(b) != solana.PublicKeyLength {
		return solana.PublicKey{}, xerrors.Errorf("public key must be %d bytes, got %d", solana.PublicKeyLength, len(b))
	}
	return solana.PublicKeyFromBytes(b), nil
}

func WriteNull(w io.Writer) error {
	_, err := w.Write(cbg.CborNull)
	return err
}

// ReadNull consumes a CBOR null if one is next and reports whether it did.
func ReadNull(cr *cbg.CborReader) (bool, error) {
	b, err := cr.ReadByte()
	if err != nil {
		return false, err
	}
	if b == cbg.CborNull[0] {
		return true, nil
	}
	return false, cr.UnreadByte()
}
