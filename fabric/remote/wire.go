package remote

import (
	"github.com/spacemeshos/go-scale"
)

// maxErrorSize limits the error text carried by Response.
const maxErrorSize = 1024

// Request asks the server for Length bytes of the window starting at Offset.
type Request struct {
	Offset uint64
	Length uint64
}

// EncodeScale implements scale codec interface.
func (r *Request) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeCompact64(enc, r.Offset)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, r.Length)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (r *Request) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		r.Offset = field
	}
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		r.Length = field
	}
	return total, nil
}

// Response carries either window bytes or an error.
type Response struct {
	Data  []byte
	Error string
}

func (r *Response) encodeScale(enc *scale.Encoder, limit uint32) (total int, err error) {
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, r.Data, limit)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, []byte(r.Error), maxErrorSize)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (r *Response) decodeScale(dec *scale.Decoder, limit uint32) (total int, err error) {
	{
		field, n, err := scale.DecodeByteSliceWithLimit(dec, limit)
		if err != nil {
			return total, err
		}
		total += n
		r.Data = field
	}
	{
		field, n, err := scale.DecodeByteSliceWithLimit(dec, maxErrorSize)
		if err != nil {
			return total, err
		}
		total += n
		r.Error = string(field)
	}
	return total, nil
}

// boundedResponse adapts Response to the codec with the data limit of the connection.
type boundedResponse struct {
	*Response
	limit uint32
}

func (r boundedResponse) EncodeScale(enc *scale.Encoder) (int, error) {
	return r.encodeScale(enc, r.limit)
}

func (r boundedResponse) DecodeScale(dec *scale.Decoder) (int, error) {
	return r.decodeScale(dec, r.limit)
}
