// Package barcode wraps external barcode decoding libraries behind a small
// in-memory Decoder interface.
//
// Two capabilities are provided: ZXingDecoder decodes directly from an
// image.Image using gozxing, and ZBarDecoder shells out to the zbarimg
// binary, which only reads files. Staged adapts any FileDecoder into a
// Decoder by writing a uniquely named temporary PNG per call and removing it
// on every return path.
//
// Decoders report "no barcode" as an empty result slice and a nil error.
// Errors are reserved for capability failures such as a missing binary or an
// image that cannot be converted for the decoder.
package barcode
