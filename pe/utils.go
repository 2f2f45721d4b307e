package pe

import (
	"encoding/binary"
	"strconv"
	"unicode/utf16"
)

func readUnicode(data []byte) string {
	encode := []uint16{}
	offset := 0
	for {
		if len(data) < offset+2 {
			return string(utf16.Decode(encode))
		}
		value := binary.LittleEndian.Uint16(data[offset : offset+2])
		if value == 0 {
			return string(utf16.Decode(encode))
		}
		encode = append(encode, value)
		offset += 2
	}
}

func countValue(group map[string]int, value string) {
	group[value]++
}

// languages we see in practice; anything else is reported as its LCID
var languageNames = map[uint16]string{
	0x0000: "NEUTRAL",
	0x0400: "PROCESS_DEFAULT",
	0x0407: "de-DE",
	0x0409: "en-US",
	0x040c: "fr-FR",
	0x0410: "it-IT",
	0x0411: "ja-JP",
	0x0412: "ko-KR",
	0x0419: "ru-RU",
	0x0804: "zh-CN",
	0x0809: "en-GB",
	0x0c0a: "es-ES",
}

func languageName(language uint16) string {
	if name, ok := languageNames[language]; ok {
		return name
	}
	return strconv.Itoa(int(language))
}
