// Package ident 解析对外暴露的实体标识符。
//
// 历史数据使用自增整数主键，当前表结构使用 UUID。两种形式在 API 边界统一解析为 ID，
// 仓储层据此选择 legacy_id 列或 UUID 主键列查询。
package ident

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidIdentifier 标识符既不是 UUID 也不是正整数
var ErrInvalidIdentifier = errors.New("无效的标识符")

var legacyPattern = regexp.MustCompile(`^[0-9]{1,18}$`)

// ID 已解析的标识符，UUID 与 Legacy 二选一
type ID struct {
	UUID   string
	Legacy int64
}

// Parse 按形状识别标识符：UUID v1-v5 或全数字的旧版整数 ID
func Parse(raw string) (ID, error) {
	raw = strings.TrimSpace(raw)
	if u, ok := parseUUID(raw); ok {
		return ID{UUID: u.String()}, nil
	}
	switch {
	case legacyPattern.MatchString(raw):
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return ID{}, ErrInvalidIdentifier
		}
		return ID{Legacy: n}, nil
	default:
		return ID{}, ErrInvalidIdentifier
	}
}

// parseUUID 只接受 36 位标准格式的 RFC 4122 v1-v5（uuid.Parse 还接受 urn 与花括号形式）
func parseUUID(raw string) (uuid.UUID, bool) {
	if len(raw) != 36 {
		return uuid.UUID{}, false
	}
	u, err := uuid.Parse(raw)
	if err != nil || u.Variant() != uuid.RFC4122 || u.Version() < 1 || u.Version() > 5 {
		return uuid.UUID{}, false
	}
	return u, true
}

// MustUUID 仅接受 UUID 形式，用于只存在于新表结构中的实体（资料、附件、通知等）
func MustUUID(raw string) (string, error) {
	id, err := Parse(raw)
	if err != nil || id.IsLegacy() {
		return "", ErrInvalidIdentifier
	}
	return id.UUID, nil
}

// IsLegacy 是否为旧版整数 ID
func (id ID) IsLegacy() bool {
	return id.UUID == "" && id.Legacy > 0
}

// Where 返回按该 ID 查询的条件与参数，pkColumn 为 UUID 主键列名
func (id ID) Where(pkColumn string) (string, interface{}) {
	if id.IsLegacy() {
		return "legacy_id = ?", id.Legacy
	}
	return pkColumn + " = ?", id.UUID
}

func (id ID) String() string {
	if id.IsLegacy() {
		return strconv.FormatInt(id.Legacy, 10)
	}
	return id.UUID
}
