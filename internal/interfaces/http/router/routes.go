// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h RouterHandlers) {
	// 项目管理
	projects := v1.Group("/projects")
	{
		projects.GET("", h.Project.ListProjects)
		projects.POST("", h.Project.CreateProject)
		projects.GET("/:pid", h.Project.GetProject)
		projects.DELETE("/:pid", h.Project.DeleteProject)

		// 项目下的章节
		projects.GET("/:pid/chapters", h.Chapter.ListChapters)
		projects.POST("/:pid/chapters", h.Chapter.CreateChapter)

		// 项目下的内容单元
		projects.GET("/:pid/units", h.Unit.ListContentUnits)
		projects.POST("/:pid/units", h.Unit.CreateContentUnit)

		// 上下文组装
		projects.POST("/:pid/context", h.Context.AssembleContext)

		// 项目下的一致性检查
		projects.GET("/:pid/checks", h.Check.ListChecks)
		projects.POST("/:pid/checks", h.Check.RecordCheck)
	}

	// 章节管理
	chapters := v1.Group("/chapters")
	{
		chapters.GET("/:cid", h.Chapter.GetChapter)
		chapters.PUT("/:cid", h.Chapter.UpdateChapter)
		chapters.DELETE("/:cid", h.Chapter.DeleteChapter)
	}

	// 内容单元管理
	units := v1.Group("/units")
	{
		units.GET("/:uid", h.Unit.GetContentUnit)
		units.PUT("/:uid", h.Unit.UpdateContentUnit)
		units.DELETE("/:uid", h.Unit.DeleteContentUnit)
	}

	// 检查记录
	checks := v1.Group("/checks")
	{
		checks.GET("/:kid", h.Check.GetCheck)
	}
}
