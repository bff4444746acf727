// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/NVIDIA/bptree/conf"
)

var logFile *os.File = nil
var logTargets *multiWriter = nil

// multiWriter fans each log entry out to every added writer.
type multiWriter struct {
	writers []io.Writer
}

func (mw *multiWriter) addWriter(writer io.Writer) {
	mw.writers = append(mw.writers, writer)
}

func (mw *multiWriter) Write(p []byte) (n int, err error) {
	for _, writer := range mw.writers {
		_, _ = writer.Write(p)
	}
	return len(p), nil
}

func addLogTarget(writer io.Writer) {
	if nil == logTargets {
		// Up() was not called (or did not run to completion); log to the
		// new target alongside the default stderr destination
		logTargets = &multiWriter{}
		logTargets.addWriter(os.Stderr)
		log.SetOutput(logTargets)
	}
	logTargets.addWriter(writer)
}

func Up(confMap conf.ConfMap) (err error) {
	log.SetFormatter(&log.TextFormatter{DisableColors: true})

	// Fetch log file info, if provided
	logFilePath, _ := confMap.FetchOptionValueString("Logging", "LogFilePath")
	if logFilePath != "" {
		logFile, err = os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Errorf("couldn't open log file: %v", err)
			return err
		}
	}

	// Determine whether we should log to console. Default is false.
	logToConsole, err := confMap.FetchOptionValueBool("Logging", "LogToConsole")
	if err != nil {
		logToConsole = false
	}

	logTargets = &multiWriter{}
	if logFilePath != "" {
		logTargets.addWriter(logFile)
		if logToConsole {
			logTargets.addWriter(os.Stderr)
		}
	} else {
		logTargets.addWriter(os.Stderr)
	}
	log.SetOutput(logTargets)

	// NOTE: We always enable max logging in logrus, and either decide in
	//       this package whether to log OR log everything and parse it out of
	//       the logs after the fact
	log.SetLevel(log.DebugLevel)

	// Fetch trace and debug log settings, if provided
	traceConfSlice, _ := confMap.FetchOptionValueStringSlice("Logging", "TraceLevelLogging")
	setTraceLoggingLevel(traceConfSlice)

	debugConfSlice, _ := confMap.FetchOptionValueStringSlice("Logging", "DebugLevelLogging")
	setDebugLoggingLevel(debugConfSlice)

	return nil
}

func Down() (err error) {
	// We open and close our own logfile
	if logFile != nil {
		logFile.Close()
	}
	logFile = nil
	logTargets = nil
	return
}
