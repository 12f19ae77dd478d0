/*
List is adapted from https://github.com/npm/ci-detect

The ISC License

Copyright (c) npm, Inc.

Permission to use, copy, modify, and/or distribute this software for any
purpose with or without fee is hereby granted, provided that the above
copyright notice and this permission notice appear in all copies.
*/

// Package ci detects whether the reports are generated on a CI system,
// where progress spinners only clutter the build log.
package ci

import "os"

type provider struct {
	env  string
	name string
}

// Checked in order. Travis and the generic CI variable come last since
// several systems set them as well.
var providers = []provider{
	{"GERRIT_PROJECT", "gerrit"},
	{"SYSTEM_TEAMFOUNDATIONCOLLECTIONURI", "azure-pipelines"},
	{"BITRISE_IO", "bitrise"},
	{"BUILDKITE", "buildkite"},
	{"CIRCLECI", "circle-ci"},
	{"GITHUB_ACTIONS", "github-actions"},
	{"GITLAB_CI", "gitlab"},
	{"JENKINS_URL", "jenkins"},
	{"TEAMCITY_VERSION", "teamcity"},
	{"BITBUCKET_BUILD_NUMBER", "bitbucket-pipelines"},
	{"CODEBUILD_SRC_DIR", "aws-codebuild"},
	{"APPCENTER_BUILD_ID", "vs-app-center"},
	{"CM_BUILD_ID", "codemagic"},
	{"EAS_BUILD", "expo"},
	{"TRAVIS", "travis-ci"},
	{"BUILDER_OUTPUT", "google-cloud-build"},
	{"CI", "custom"},
}

// Name returns the name of the CI system or an empty string if not
// running on one.
func Name() string {
	for _, p := range providers {
		if os.Getenv(p.env) != "" {
			return p.name
		}
	}
	return ""
}

func IsCI() bool {
	return Name() != ""
}
