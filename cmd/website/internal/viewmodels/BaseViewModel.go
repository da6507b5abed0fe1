package viewmodels

import (
	"github.com/adampresley/adamgokit/rendering"
)

type BaseViewModel struct {
	Message            string
	IsError            bool
	IsWarning          bool
	IsSuccess          bool
	IsHtmx             bool
	JavascriptIncludes []rendering.JavascriptInclude
}

func (vm *BaseViewModel) SetError(message string) {
	vm.IsError = true
	vm.IsSuccess = false
	vm.Message = message
}

func (vm *BaseViewModel) SetSuccess(message string) {
	vm.IsError = false
	vm.IsSuccess = true
	vm.Message = message
}
