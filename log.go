// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package duplex

import "go.uber.org/zap"

// logger returns the package logger, derived from zap's global logger on
// every call so zap.ReplaceGlobals takes effect without re-initialization.
// The default global logger discards everything.
func logger() *zap.Logger {
	return zap.L().Named("duplex")
}
