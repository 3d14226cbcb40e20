package assembly

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// HashSections 对区块文本计算确定性摘要。
// 区块文本逐段按「类型 + 长度前缀 + 正文」写入，
// 五个区块字节级相同的两次构建必然得到相同摘要。
func HashSections(sections []Section) string {
	h := sha256.New()
	var lenBuf [binary.MaxVarintLen64]byte
	for _, section := range sections {
		h.Write([]byte(section.Kind))
		h.Write([]byte{0})
		n := binary.PutUvarint(lenBuf[:], uint64(len(section.Text)))
		h.Write(lenBuf[:n])
		h.Write([]byte(section.Text))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ShortHash 任意字符串的短摘要，用于拼缓存键
func ShortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
