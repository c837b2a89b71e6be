package reader

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {

	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)
}

// Logger is the logger used by readers whose Options carry none.
func Logger() *logrus.Logger {
	return log
}
