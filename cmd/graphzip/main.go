/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command graphzip compresses, decompresses and traverses adjacency-list
// graphs.
//
// Usage:
//
//	graphzip encode [-random_access] [-rounds n] input output
//	graphzip decode input
//	graphzip bfs [-compressed] input
//	graphzip dfs [-compressed] input
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/graphzip/graphzip/graph"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s encode|decode|bfs|dfs [flags] input [output]\n", os.Args[0])
	os.Exit(2)
}

func die(err error) {
	fmt.Fprintf(os.Stderr, "graphzip: %v\n", err)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "encode":
		cmdEncode(os.Args[2:])
	case "decode":
		cmdDecode(os.Args[2:])
	case "bfs":
		cmdTraverse(os.Args[2:], graph.BFS, "BFS")
	case "dfs":
		cmdTraverse(os.Args[2:], graph.DFS, "DFS")
	default:
		usage()
	}
}

func cmdEncode(args []string) {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	randomAccess := fs.Bool("random_access", false, "produce a seekable stream")
	rounds := fs.Int("rounds", 1, "number of reference selection rounds")
	fs.Parse(args)
	if fs.NArg() != 2 {
		usage()
	}
	g, err := graph.LoadUncompressed(fs.Arg(0))
	if err != nil {
		die(err)
	}
	start := time.Now()
	data, chk, err := graph.Encode(g, graph.EncodeOptions{
		AllowRandomAccess: *randomAccess,
		NumRounds:         *rounds,
	})
	if err != nil {
		die(err)
	}
	elapsed := time.Since(start)
	if err := os.WriteFile(fs.Arg(1), data, 0o644); err != nil {
		die(err)
	}
	edges := g.NumEdges()
	fmt.Fprintf(os.Stderr, "compressed %d edges to %.2f BPE in %v, checksum %x, digest %016x\n",
		edges, 8*float64(len(data))/float64(edges), elapsed, chk, xxhash.Sum64(data))
}

func cmdDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		die(err)
	}
	start := time.Now()
	g, chk, err := graph.Decode(data)
	if err != nil {
		die(err)
	}
	elapsed := time.Since(start)
	edges := g.NumEdges()
	fmt.Fprintf(os.Stderr, "decompressed %d edges from %.2f BPE in %v, checksum %x, digest %016x\n",
		edges, 8*float64(len(data))/float64(edges), elapsed, chk, xxhash.Sum64(data))
}

func cmdTraverse(args []string, traverse func(graph.NeighbourSource, func(int)), name string) {
	fs := flag.NewFlagSet("traverse", flag.ExitOnError)
	compressed := fs.Bool("compressed", false, "input is a random-access compressed stream")
	print := fs.Bool("print", false, "print the visit order")
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
	}
	var g graph.NeighbourSource
	if *compressed {
		c, err := graph.LoadCompressed(fs.Arg(0))
		if err != nil {
			die(err)
		}
		g = c
	} else {
		u, err := graph.LoadUncompressed(fs.Arg(0))
		if err != nil {
			die(err)
		}
		g = u
	}
	visited := 0
	start := time.Now()
	traverse(g, func(node int) {
		visited++
		if *print {
			fmt.Printf("%d ", node)
		}
	})
	if *print {
		fmt.Println()
	}
	fmt.Fprintf(os.Stderr, "%s visited %d vertices in %v\n", name, visited, time.Since(start))
}
