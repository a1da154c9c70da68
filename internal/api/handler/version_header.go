package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/krrishnaik/Markly/pkg/response"
)

// 考勤记录的版本号同时通过 ETag / If-Match 暴露："3" 表示 version=3

// expectedVersion 合并请求体中的 expected_version 与 If-Match 头。
// 两者都给出且不一致时写入 400 并返回 ok=false。
func expectedVersion(c *gin.Context, fromBody *int) (*int, bool) {
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" || raw == "*" {
		return fromBody, true
	}

	raw = strings.TrimPrefix(raw, "W/")
	v, err := strconv.Atoi(strings.Trim(raw, `"`))
	if err != nil || v < 1 {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeBadRequest, "If-Match 格式错误", raw)
		return nil, false
	}
	if fromBody != nil && *fromBody != v {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "If-Match 与 expected_version 不一致")
		return nil, false
	}
	return &v, true
}

// setVersionTag 写入 ETag，供下一次条件更新使用
func setVersionTag(c *gin.Context, version int) {
	c.Header("ETag", strconv.Quote(strconv.Itoa(version)))
}
