package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/rpsd/cmd"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		PadLevelText:     true,
	})
	logrus.SetLevel(logrus.InfoLevel)

	if err := rpsd(); err != nil {
		logrus.Fatal(err)
	}
}

func rpsd() error {
	root := cmd.Root()
	root.SetArgs(os.Args[1:])
	return root.Execute()
}
