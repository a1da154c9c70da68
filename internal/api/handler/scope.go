package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/krrishnaik/Markly/internal/model"
	"github.com/krrishnaik/Markly/internal/service"
)

// clubScope 解析当前用户可见的社团集合
//
//	STUDENT  已加入的社团
//	LEAD     所负责的社团
//	FACULTY  全部社团
type clubScope struct {
	auth  service.AuthService
	clubs service.ClubService
}

// clubIDs 出错时已写入响应，调用方直接 return
func (s *clubScope) clubIDs(c *gin.Context) ([]string, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return nil, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return nil, false
	}

	ctx := c.Request.Context()
	switch role {
	case model.RoleFaculty:
		clubs, err := s.clubs.List(ctx)
		if err != nil {
			respondError(c, err)
			return nil, false
		}
		ids := make([]string, len(clubs))
		for i, club := range clubs {
			ids[i] = club.ID
		}
		return ids, true
	case model.RoleLead:
		if id := GetClubID(c); id != "" {
			return []string{id}, true
		}
		return []string{}, true
	default:
		user, err := s.auth.GetCurrentUser(ctx, userID)
		if err != nil {
			respondError(c, err)
			return nil, false
		}
		return user.JoinedClubIDs, true
	}
}
