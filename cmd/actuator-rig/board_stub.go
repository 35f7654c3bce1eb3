//go:build !linux

package main

func boardModel() string { return "" }
