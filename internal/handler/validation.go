package handler

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/dumeirei/funzone-backend/internal/service/promotion"
)

// TagTier 会员等级校验标签，接受规范名与越南语别名
const TagTier = "tier"

var registerOnce sync.Once

// RegisterValidators 向 gin 的校验引擎注册自定义标签，可重复调用
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(fieldName)
			_ = v.RegisterValidation(TagTier, validateTier)
		}
	})
}

// fieldName 校验错误里使用 json 或 form 标签名
func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func validateTier(fl validator.FieldLevel) bool {
	tier, err := promotion.ParseTier(fl.Field().String())
	return err == nil && tier != promotion.TierNone
}
