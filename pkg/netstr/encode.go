package netstr

import "strconv"

// Encode writes data as a plain netstring.
func (e *Encoder) Encode(data []byte) error {
	return e.write(nil, data)
}

// EncodeKeyed writes key followed by data as one netstring.
func (e *Encoder) EncodeKeyed(key byte, data []byte) error {
	return e.write([]byte{key}, data)
}

// EncodeString writes s as a plain netstring.
func (e *Encoder) EncodeString(s string) error {
	return e.Encode([]byte(s))
}

func (e *Encoder) write(prefix, data []byte) error {
	e.buf = strconv.AppendInt(e.buf[:0], int64(len(prefix)+len(data)), 10)
	e.buf = append(e.buf, ':')
	e.buf = append(e.buf, prefix...)
	e.buf = append(e.buf, data...)
	e.buf = append(e.buf, ',')
	_, err := e.w.Write(e.buf)
	return err
}
