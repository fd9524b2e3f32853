package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUseTreeSimple(t *testing.T) {
	t.Parallel()

	specs := parseUseTree("std::collections::HashMap")
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"std", "collections", "HashMap"}, specs[0].path)
	assert.Empty(t, specs[0].alias)
	assert.False(t, specs[0].glob)
}

func TestParseUseTreeAlias(t *testing.T) {
	t.Parallel()

	specs := parseUseTree("crate::engine::Motor as Engine")
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"crate", "engine", "Motor"}, specs[0].path)
	assert.Equal(t, "Engine", specs[0].alias)
}

func TestParseUseTreeGlob(t *testing.T) {
	t.Parallel()

	specs := parseUseTree("crate::prelude::*")
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"crate", "prelude"}, specs[0].path)
	assert.True(t, specs[0].glob)
}

func TestParseUseTreeNestedGroups(t *testing.T) {
	t.Parallel()

	specs := parseUseTree("tokio::{io::{Read, Write as W}, net, self}")
	require.Len(t, specs, 4)
	assert.Equal(t, []string{"tokio", "io", "Read"}, specs[0].path)
	assert.Equal(t, []string{"tokio", "io", "Write"}, specs[1].path)
	assert.Equal(t, "W", specs[1].alias)
	assert.Equal(t, []string{"tokio", "net"}, specs[2].path)

	// "self" inside a group collapses to the group prefix.
	assert.Equal(t, []string{"tokio"}, specs[3].path)
}

func TestSplitTopLevelRespectsBraces(t *testing.T) {
	t.Parallel()

	parts := splitTopLevel("a::{b, c}, d", ',')
	require.Len(t, parts, 2)
	assert.Equal(t, "a::{b, c}", parts[0])
	assert.Equal(t, " d", parts[1])
}

func TestSplitPathSeparators(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b", "c"}, splitPath("a::b::c"))
	assert.Equal(t, []string{"a", "b", "c"}, splitPath("a.b.c"))
	assert.Equal(t, []string{"A", "B", "C"}, splitPath(`A\B\C`))
	assert.Nil(t, splitPath(""))
}

func TestParsePythonImportPlain(t *testing.T) {
	t.Parallel()

	specs := parsePythonImport("import os.path, json as j")
	require.Len(t, specs, 2)
	assert.Equal(t, []string{"os", "path"}, specs[0].path)
	assert.Equal(t, []string{"json"}, specs[1].path)
	assert.Equal(t, "j", specs[1].alias)
}

func TestParsePythonImportFrom(t *testing.T) {
	t.Parallel()

	specs := parsePythonImport("from pkg.sub import alpha, beta as b")
	require.Len(t, specs, 2)
	assert.Equal(t, []string{"pkg", "sub", "alpha"}, specs[0].path)
	assert.Equal(t, []string{"pkg", "sub", "beta"}, specs[1].path)
	assert.Equal(t, "b", specs[1].alias)
}

func TestParsePythonImportRelative(t *testing.T) {
	t.Parallel()

	specs := parsePythonImport("from . import sibling")
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"self", "sibling"}, specs[0].path)

	specs = parsePythonImport("from ..shared import util")
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"super", "shared", "util"}, specs[0].path)
}

func TestParsePythonImportStar(t *testing.T) {
	t.Parallel()

	specs := parsePythonImport("from helpers import *")
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"helpers"}, specs[0].path)
	assert.True(t, specs[0].glob)
}

func TestParseJsImportForms(t *testing.T) {
	t.Parallel()

	specs := parseJsImport(`import { readFile, join as j } from "./fs/helpers";`)
	require.Len(t, specs, 2)
	assert.Equal(t, []string{"super", "fs", "helpers", "readFile"}, specs[0].path)
	assert.Equal(t, []string{"super", "fs", "helpers", "join"}, specs[1].path)
	assert.Equal(t, "j", specs[1].alias)

	specs = parseJsImport(`import * as path from "path";`)
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"path"}, specs[0].path)
	assert.Equal(t, "path", specs[0].alias)

	specs = parseJsImport(`import React from "react";`)
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"react"}, specs[0].path)
	assert.Equal(t, "React", specs[0].alias)

	// Side-effect imports bind nothing.
	assert.Empty(t, parseJsImport(`import "./polyfill";`))
}

func TestJsModulePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"super", "sibling"}, jsModulePath("./sibling"))
	assert.Equal(t, []string{"super", "super", "shared"}, jsModulePath("../shared"))
	assert.Equal(t, []string{"lodash", "merge"}, jsModulePath("lodash/merge"))
	assert.Equal(t, []string{"super", "util"}, jsModulePath("./util.ts"))
}

func TestParseJavaImport(t *testing.T) {
	t.Parallel()

	specs := parseJavaImport("import java.util.List;")
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"java", "util", "List"}, specs[0].path)
	assert.False(t, specs[0].glob)

	specs = parseJavaImport("import java.util.*;")
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"java", "util"}, specs[0].path)
	assert.True(t, specs[0].glob)

	specs = parseJavaImport("import static org.junit.Assert.assertEquals;")
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"org", "junit", "Assert", "assertEquals"}, specs[0].path)
}

func TestParsePhpUse(t *testing.T) {
	t.Parallel()

	specs := parsePhpUse(`use App\Models\User as U, App\Support\Str;`)
	require.Len(t, specs, 2)
	assert.Equal(t, []string{"App", "Models", "User"}, specs[0].path)
	assert.Equal(t, "U", specs[0].alias)
	assert.Equal(t, []string{"App", "Support", "Str"}, specs[1].path)
	assert.Empty(t, specs[1].alias)
}

func TestRelativePythonPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"self"}, relativePythonPath("."))
	assert.Equal(t, []string{"self", "mod"}, relativePythonPath(".mod"))
	assert.Equal(t, []string{"super"}, relativePythonPath(".."))
	assert.Equal(t, []string{"super", "super", "pkg"}, relativePythonPath("...pkg"))
	assert.Equal(t, []string{"abs", "pkg"}, relativePythonPath("abs.pkg"))
}
