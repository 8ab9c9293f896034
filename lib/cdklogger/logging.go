// Package cdklogger writes synth-time diagnostics onto the construct tree as CDK annotations.
// `cdk synth` prints them, and ERROR annotations make `cdk deploy` refuse the assembly.
package cdklogger

import (
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// Level is the severity of an annotation.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// LogInfo adds an INFO level message to the construct's metadata.
func LogInfo(scope constructs.Construct, constructID string, format string, args ...interface{}) {
	Log(scope, LevelInfo, constructID, format, args...)
}

// LogWarning adds a WARNING level message to the construct's metadata.
func LogWarning(scope constructs.Construct, constructID string, format string, args ...interface{}) {
	Log(scope, LevelWarning, constructID, format, args...)
}

// LogError adds an ERROR level message to the construct's metadata.
func LogError(scope constructs.Construct, constructID string, format string, args ...interface{}) {
	Log(scope, LevelError, constructID, format, args...)
}

// Log annotates scope at the given level. The message is prefixed with "[constructID]"
// unless the scope path already ends with that id.
func Log(scope constructs.Construct, level Level, constructID string, format string, args ...interface{}) {
	message := Format(*scope.Node().Path(), constructID, format, args...)
	annotations := awscdk.Annotations_Of(scope)
	switch level {
	case LevelWarning:
		annotations.AddWarning(jsii.String(message))
	case LevelError:
		annotations.AddError(jsii.String(message))
	default:
		annotations.AddInfo(jsii.String(message))
	}
}

// Format renders the annotation text for a construct at cdkPath.
func Format(cdkPath string, constructID string, format string, args ...interface{}) string {
	message := fmt.Sprintf(format, args...)
	if constructID == "" {
		return message
	}
	if strings.HasSuffix(cdkPath, "/"+constructID) || cdkPath == constructID {
		return message
	}
	return fmt.Sprintf("[%s] %s", constructID, message)
}
