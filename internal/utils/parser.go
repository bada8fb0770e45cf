package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reBrackets = regexp.MustCompile(`[\[【].*?[\]】]`)
	reQuality  = regexp.MustCompile(`(?i)\b(2160p|1080p|720p|480p|4k|hdrip|bluray|web-dl|webrip|dvdrip|x264|x265|hevc)\b`)
	reYear     = regexp.MustCompile(`\(?\b(19|20)\d{2}\b\)?`)

	// https://t.me/c/1234567890/45 或 https://t.me/channelname/45
	reMessageLink = regexp.MustCompile(`^(?:https?://)?t\.me/(?:c/(\d+)|([A-Za-z0-9_]{4,}))/(\d+)$`)
)

// CleanTitle 清洗片名：去除发布标签、清晰度标记和年份，用作元数据查询词
func CleanTitle(title string) string {
	if title == "" {
		return ""
	}
	title = reBrackets.ReplaceAllString(title, " ")
	title = reQuality.ReplaceAllString(title, " ")
	title = reYear.ReplaceAllString(title, " ")
	title = strings.ReplaceAll(title, ".", " ")
	title = strings.ReplaceAll(title, "_", " ")
	return strings.Join(strings.Fields(title), " ")
}

// SplitArgs 按 "|" 拆分命令参数并去除首尾空白，空输入返回 nil
func SplitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// ErrBadReference 消息引用无法解析
var ErrBadReference = errors.New("bad message reference")

// MessageRef 指向存储频道中的一条消息，公开链接会带 Username
type MessageRef struct {
	ChatID    int64
	Username  string
	MessageID int
}

// ParseMessageRef 解析消息引用
// 支持 "chatID/messageID"、"chatID messageID" 和 t.me 消息链接
func ParseMessageRef(s string) (MessageRef, error) {
	s = strings.TrimSpace(s)
	if m := reMessageLink.FindStringSubmatch(s); m != nil {
		msgID, _ := strconv.Atoi(m[3])
		if m[1] != "" {
			id, err := strconv.ParseInt("-100"+m[1], 10, 64)
			if err != nil {
				return MessageRef{}, fmt.Errorf("%w: %v", ErrBadReference, err)
			}
			return MessageRef{ChatID: id, MessageID: msgID}, nil
		}
		return MessageRef{Username: m[2], MessageID: msgID}, nil
	}

	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == ' ' || r == ':' })
	if len(fields) != 2 {
		return MessageRef{}, fmt.Errorf("%w: %q", ErrBadReference, s)
	}
	chatID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return MessageRef{}, fmt.Errorf("%w: chat id %q", ErrBadReference, fields[0])
	}
	msgID, err := strconv.Atoi(fields[1])
	if err != nil || msgID <= 0 {
		return MessageRef{}, fmt.Errorf("%w: message id %q", ErrBadReference, fields[1])
	}
	return MessageRef{ChatID: chatID, MessageID: msgID}, nil
}

// ParseSeconds 解析非负整数秒数
func ParseSeconds(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative: %d", n)
	}
	return n, nil
}

// ChannelLink 根据用户名生成公开频道链接
func ChannelLink(username string) string {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return ""
	}
	return "https://t.me/" + username
}
