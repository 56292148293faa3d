/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
flock-bench - Flock upload benchmark driver

Uploads a batch of generated files against a cluster node with bounded
concurrency and reports throughput. Redirects count as part of the
request, so pointing the benchmark at a follower measures the full
redirect path.

Usage:

	flock-bench --host 127.0.0.1 --port 9000 --count 1000 --concurrency 10
*/
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"flock/pkg/cli"
	"flock/pkg/client"
)

func main() {
	host := flag.String("host", "127.0.0.1", "Node host")
	port := flag.Int("port", 9000, "Node client port")
	count := flag.Int("count", 1000, "Number of files to upload")
	concurrency := flag.Int("concurrency", 10, "Concurrent uploaders")
	maxLines := flag.Int("max-lines", 50, "Maximum lines per generated file")
	flag.Parse()

	if *count <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "flock-bench: count and concurrency must be positive")
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", *host, *port)
	cli.PrintInfo("Uploading %d files to %s with concurrency %d", *count, addr, *concurrency)

	// Pre-generate payloads so generation cost stays out of the timing.
	payloads := make([][]byte, *count)
	for i := range payloads {
		lines := rand.Intn(*maxLines) + 1
		payloads[i] = []byte(strings.Repeat("data_line\n", lines))
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
	)

	start := time.Now()
	for b := 0; b < *concurrency; b++ {
		wg.Add(1)
		go func(bucket int) {
			defer wg.Done()
			c := client.New(addr, client.DefaultConfig())
			for i := bucket; i < *count; i += *concurrency {
				name := fmt.Sprintf("bench_%d.txt", i)
				if err := c.Put(name, payloads[i]); err != nil {
					mu.Lock()
					failures++
					mu.Unlock()
				}
			}
		}(b)
	}
	wg.Wait()
	elapsed := time.Since(start)

	ok := *count - failures
	table := cli.NewTable("METRIC", "VALUE")
	table.AddRow("uploads", fmt.Sprintf("%d", ok))
	table.AddRow("failures", fmt.Sprintf("%d", failures))
	table.AddRow("elapsed", elapsed.Round(time.Millisecond).String())
	table.AddRow("throughput", fmt.Sprintf("%.1f files/s", float64(ok)/elapsed.Seconds()))
	table.Print()

	if failures > 0 {
		cli.PrintWarning("%d uploads failed", failures)
		os.Exit(1)
	}
	cli.PrintSuccess("Benchmark completed: %d files in %s", ok, elapsed.Round(time.Millisecond))
}
