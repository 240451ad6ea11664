package http

import (
	"errors"

	"identidraw-be/internal/auth"
	"identidraw-be/internal/state"

	"github.com/kataras/iris/v12"
)

type registerRequest struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// RegisterUser 注册或找回用户档案：校验身份令牌，
// 同一 subject 重复注册返回已有档案，用户名被占用返回 409。
func RegisterUser(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req registerRequest

		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": "请求参数无效",
			})
			return
		}

		if req.Token == "" || req.Username == "" {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": "令牌和用户名不能为空",
			})
			return
		}

		user, err := appState.UserSvc.Register(ctx, req.Token, req.Username)
		if err != nil {
			if errors.Is(err, auth.ErrUsernameTaken) {
				ctx.StatusCode(iris.StatusConflict)
			} else {
				ctx.StatusCode(iris.StatusBadRequest)
			}

			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(iris.Map{
			"user": user,
		})
	}
}
