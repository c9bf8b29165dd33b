package router

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"candidate-parser-go/internal/api/handler"
)

// RegisterRoutes 注册 API 路由
// apiKey非空时上传和查询接口启用Bearer鉴权
func RegisterRoutes(h *server.Hertz, candidateHandler *handler.CandidateHandler, apiKey string) {
	// 健康检查和保活不鉴权
	h.GET("/keep_alive", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "alive"})
	})

	api := h.Group("/api/v1")

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	if apiKey != "" {
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
			keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
				return key == apiKey, nil
			}),
		))
	}

	api.POST("/candidate/upload", func(c context.Context, ctx *app.RequestContext) {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
			return
		}

		sourceChannel := ctx.PostForm("source_channel")
		if sourceChannel == "" {
			sourceChannel = "api"
		}

		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
			return
		}
		defer file.Close()

		resp, err := candidateHandler.HandleCandidateUpload(
			c,
			file,
			fileHeader.Size,
			fileHeader.Filename,
			sourceChannel,
		)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}

		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/candidate/:id", func(c context.Context, ctx *app.RequestContext) {
		candidateID := ctx.Param("id")
		record, err := candidateHandler.GetCandidate(c, candidateID)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		if record == nil {
			ctx.JSON(consts.StatusNotFound, utils.H{"error": "候选人不存在"})
			return
		}
		ctx.JSON(consts.StatusOK, record)
	})

	api.GET("/submission/:uuid", func(c context.Context, ctx *app.RequestContext) {
		resp, err := candidateHandler.GetSubmissionStatus(c, ctx.Param("uuid"))
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		if resp == nil {
			ctx.JSON(consts.StatusNotFound, utils.H{"error": "摄入记录不存在"})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/candidates", func(c context.Context, ctx *app.RequestContext) {
		page := ctx.DefaultQuery("page", "1")
		pageSize := ctx.DefaultQuery("page_size", "20")
		resp, err := candidateHandler.ListCandidates(c, atoiOr(page, 1), atoiOr(pageSize, 20))
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})
}

// atoiOr 解析十进制整数，失败时返回默认值
func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
