package validator

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/regionsvc/region-api/internal/model"
)

// Register installs the region-domain validations on gin's binding
// engine. Call once at startup before any request binding happens.
func Register() error {
	engine, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding engine %T", binding.Validator.Engine())
	}

	if err := engine.RegisterValidation("userregion", validUserRegion); err != nil {
		return err
	}
	return engine.RegisterValidation("regioncode", validRegionCode)
}

// validUserRegion accepts the settings-domain identifiers.
func validUserRegion(fl validator.FieldLevel) bool {
	return model.UserRegion(fl.Field().String()).Valid()
}

// validRegionCode accepts the detection-domain identifiers.
func validRegionCode(fl validator.FieldLevel) bool {
	code := model.RegionCode(fl.Field().String())
	return code == model.RegionZH || code == model.RegionEN
}
