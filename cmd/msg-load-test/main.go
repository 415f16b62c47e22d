package main

import (
	"github.com/informalsystems/msg-load-test/pkg/loadtest"
)

const appLongDesc = `Simulates a bulk message dispatch workload.

A generator produces a stream of synthetic (recipient, payload) messages into
a shared queue, while a pool of concurrent senders drains the queue, simulating
network send latency and probabilistic failure. Progress (messages sent,
messages failed and the average time per message) is reported periodically
as JSON log records on stderr. No real messages are ever sent.

Every required setting can be supplied either as a flag or through its
environment variable (flags take precedence):
    NUMBER_OF_MESSAGES    --num-messages/-m
    NUMBER_OF_SENDERS     --num-senders/-s
    MEAN_PROCESSING_TIME  --mean-processing-time/-t
    FAILURE_RATE          --failure-rate/-f
    UPDATE_INTERVAL       --update-interval/-u

Example:
    msg-load-test -m 1000 -s 10 -t 0.5 -f 0.1 -u 5 \
        --stats-output results.csv \
        --metrics-output results.prom
`

func main() {
	loadtest.Run(&loadtest.CLIConfig{
		AppName:      "msg-load-test",
		AppShortDesc: "Bulk message dispatch load simulator",
		AppLongDesc:  appLongDesc,
	})
}
