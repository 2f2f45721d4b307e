// MIT License
//
// portions Copyright (c) 2017 Lukas Rist
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package icondir

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/go-errors/errors"
)

const (
	rollingWindow uint32 = 7
	blockMin             = 3
	spamSumLength        = 64
	minFuzzySize         = 4096
	hashPrime     uint32 = 0x01000193
	hashInit      uint32 = 0x28021967
	b64String            = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
)

type rollingState struct {
	window [rollingWindow]byte
	h1     uint32
	h2     uint32
	h3     uint32
	n      uint32
}

func (rs *rollingState) sum() uint32 {
	return rs.h1 + rs.h2 + rs.h3
}

func (rs *rollingState) roll(c byte) {
	rs.h2 -= rs.h1
	rs.h2 += rollingWindow * uint32(c)
	rs.h1 += uint32(c)
	rs.h1 -= uint32(rs.window[rs.n])
	rs.window[rs.n] = c
	rs.n++
	if rs.n == rollingWindow {
		rs.n = 0
	}
	rs.h3 = rs.h3 << 5
	rs.h3 ^= uint32(c)
}

type fuzzyState struct {
	rolling    rollingState
	blockSize  int
	digest1    strings.Builder
	digest2    strings.Builder
	blockHash1 uint32
	blockHash2 uint32
}

func sumHash(c byte, h uint32) uint32 {
	return (h * hashPrime) ^ uint32(c)
}

// the smallest block size that fits the input into a full length digest
func blockSizeFor(n int) int {
	blockSize := blockMin
	for blockSize*spamSumLength < n {
		blockSize = blockSize * 2
	}
	return blockSize
}

func (state *fuzzyState) reset(blockSize int) {
	state.rolling = rollingState{}
	state.blockSize = blockSize
	state.blockHash1 = hashInit
	state.blockHash2 = hashInit
	state.digest1.Reset()
	state.digest2.Reset()
}

func (state *fuzzyState) update(b byte) {
	state.blockHash1 = sumHash(b, state.blockHash1)
	state.blockHash2 = sumHash(b, state.blockHash2)
	state.rolling.roll(b)
	rh := int(state.rolling.sum())
	if rh%state.blockSize != state.blockSize-1 {
		return
	}
	if state.digest1.Len() < spamSumLength-1 {
		state.digest1.WriteByte(b64String[state.blockHash1%64])
		state.blockHash1 = hashInit
	}
	if rh%(state.blockSize*2) == state.blockSize*2-1 && state.digest2.Len() < spamSumLength/2-1 {
		state.digest2.WriteByte(b64String[state.blockHash2%64])
		state.blockHash2 = hashInit
	}
}

// fuzzyHash computes the ssdeep digest of the size bytes read from r. The
// input is read again with a halved block size until the first digest is
// long enough.
func fuzzyHash(r io.ReadSeeker, size int) (string, error) {
	if size < minFuzzySize {
		return "", errNotEnoughData
	}
	var state fuzzyState
	blockSize := blockSizeFor(size)
	for {
		if blockSize < blockMin {
			return "", errBlockTooSmall
		}
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return "", errors.Wrap(err, 0)
		}
		state.reset(blockSize)
		reader := bufio.NewReader(r)
		for {
			b, err := reader.ReadByte()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", errors.Wrap(err, 0)
			}
			state.update(b)
		}
		if state.digest1.Len() >= spamSumLength/2 {
			break
		}
		blockSize = blockSize / 2
	}
	if state.rolling.sum() != 0 {
		// trailing data after the last trigger point
		state.digest1.WriteByte(b64String[state.blockHash1%64])
		state.digest2.WriteByte(b64String[state.blockHash2%64])
	}
	return strconv.Itoa(state.blockSize) + ":" + state.digest1.String() + ":" + state.digest2.String(), nil
}
