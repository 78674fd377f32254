package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBizError(t *testing.T) {
	wrapped := fmt.Errorf("save version: %w", ErrVersionExists)

	assert.True(t, IsBizError(wrapped, StatusVersionExists))
	assert.False(t, IsBizError(wrapped, StatusPrivMis))
	assert.False(t, IsBizError(fmt.Errorf("plain"), StatusVersionExists))
	assert.Equal(t, "biz error 20004: version already exists", ErrVersionExists.Error())
}

func TestNewApiVersion(t *testing.T) {
	v := &Version{ID: 9, EnvironmentID: 3, ProjectID: 2, ProductID: 1, Name: "v1", Memo: "m", CheckSum: "abc"}
	vo := NewApiVersion(v)

	assert.Equal(t, &ApiVersion{VersionID: 9, VersionName: "v1", EnvironmentID: 3, ProjectID: 2, CheckSum: "abc"}, vo)
}
