package h264

import "errors"

var ErrBitstreamExhausted = errors.New("bitstream exhausted")
var ErrExpGolombOverflow = errors.New("exp-golomb code exceeds 32 leading zero bits")
var ErrInvalidBitCount = errors.New("bit count must be between 0 and 32")

// ErrMalformedStartCode is informational: the scanner stops at the first
// position without a start code and keeps the units found so far.
var ErrMalformedStartCode = errors.New("no start code at scan position")

// Recoverable failures inside optional SPS/VUI sub-structures. They are
// recorded in SPSInfo.Diagnostics and never abort the enclosing parse.
var ErrScalingMatrix = errors.New("scaling matrix")
var ErrPicOrderCnt = errors.New("pic order count")
var ErrCropping = errors.New("frame cropping")
var ErrVUITruncated = errors.New("vui truncated")

var ErrSPSParseFailed = errors.New("sps parse failed")
