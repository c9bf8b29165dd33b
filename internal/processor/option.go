package processor

import (
	"log"

	"candidate-parser-go/internal/storage"
)

// ComponentOpt 组件选项类型，仅改变 Components 结构体内的字段
type ComponentOpt func(*Components)

// SettingOpt 设置选项类型，仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

// ----- 组件选项 -----

// WithcompStorage 设置存储组件
func WithcompStorage(storage *storage.Storage) ComponentOpt {
	return func(c *Components) {
		c.Storage = storage
	}
}

// WithcompTextextractor 设置文档文本提取器组件
func WithcompTextextractor(extractor DocumentTextExtractor) ComponentOpt {
	return func(c *Components) {
		c.TextExtractor = extractor
	}
}

// WithcompFieldextractor 设置确定性字段抽取器组件
func WithcompFieldextractor(extractor FieldExtractor) ComponentOpt {
	return func(c *Components) {
		c.FieldExtractor = extractor
	}
}

// WithcompGenerative 设置生成式抽取器组件
func WithcompGenerative(extractor GenerativeExtractor) ComponentOpt {
	return func(c *Components) {
		c.Generative = extractor
	}
}

// WithcompSheets 设置Sheets投递出口
func WithcompSheets(appender SheetAppender) ComponentOpt {
	return func(c *Components) {
		c.Sheets = appender
	}
}

// WithcompPortal 设置门户投递出口
func WithcompPortal(uploader PortalUploader) ComponentOpt {
	return func(c *Components) {
		c.Portal = uploader
	}
}

// WithcompExcel 设置本地Excel降级出口
func WithcompExcel(writer WorkbookWriter) ComponentOpt {
	return func(c *Components) {
		c.Excel = writer
	}
}

// ----- 设置选项 -----

// WithsetUsegenerative 设置是否启用生成式抽取
func WithsetUsegenerative(use bool) SettingOpt {
	return func(s *Settings) {
		s.UseGenerative = use
	}
}

// WithsetDebug 设置调试模式
func WithsetDebug(debug bool) SettingOpt {
	return func(s *Settings) {
		s.Debug = debug
	}
}

// WithsetLogger 设置日志记录器
func WithsetLogger(logger *log.Logger) SettingOpt {
	return func(s *Settings) {
		if logger != nil {
			s.Logger = logger
		}
	}
}
