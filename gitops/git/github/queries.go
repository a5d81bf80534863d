package github

// GraphQL documents, one per remote operation.

const pullRequestFields = `
fragment PullRequestFields on PullRequest {
  id
  number
  url
  title
  body
  state
  headRefName
  baseRefName
  headRepositoryOwner { login }
}`

const getRepositoryInfoQuery = `
query GetRepositoryInfo($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    id
    name
    owner { login }
    defaultBranchRef { name target { oid } }
    parent {
      id
      name
      owner { login }
      defaultBranchRef { name target { oid } }
    }
  }
}`

const getCurrentUserLoginQuery = `
query GetCurrentUserLogin {
  viewer { login }
}`

const getBranchesQuery = `
query GetBranches(
  $owner: String!
  $name: String!
  $query: String
  $cursor: String
) {
  repository(owner: $owner, name: $name) {
    refs(
      first: 100
      after: $cursor
      refPrefix: "refs/heads/"
      query: $query
    ) {
      nodes { id name target { oid } }
      pageInfo { hasNextPage endCursor }
    }
  }
}`

const getRefQuery = `
query GetRef(
  $owner: String!
  $name: String!
  $qualifiedName: String!
) {
  repository(owner: $owner, name: $name) {
    ref(qualifiedName: $qualifiedName) {
      id
      name
      target { oid }
    }
  }
}`

const createRefMutation = `
mutation CreateRef(
  $repositoryId: ID!
  $name: String!
  $oid: GitObjectID!
) {
  createRef(
    input: {repositoryId: $repositoryId, name: $name, oid: $oid}
  ) {
    ref { id name target { oid } }
  }
}`

const updateRefsMutation = `
mutation UpdateRefs($repositoryId: ID!, $refUpdates: [RefUpdate!]!) {
  updateRefs(
    input: {repositoryId: $repositoryId, refUpdates: $refUpdates}
  ) {
    clientMutationId
  }
}`

const compareCommitsQuery = `
query CompareCommits(
  $owner: String!
  $name: String!
  $qualifiedName: String!
  $headRef: String!
) {
  repository(owner: $owner, name: $name) {
    ref(qualifiedName: $qualifiedName) {
      compare(headRef: $headRef) { status aheadBy behindBy }
    }
  }
}`

const mergeBranchMutation = `
mutation MergeUpstream(
  $repositoryId: ID!
  $base: String!
  $head: String!
  $commitMessage: String
) {
  mergeBranch(
    input: {
      repositoryId: $repositoryId
      base: $base
      head: $head
      commitMessage: $commitMessage
    }
  ) {
    mergeCommit { oid }
  }
}`

const getDirectoryContentQuery = `
query GetDirectoryContent(
  $owner: String!
  $name: String!
  $expression: String!
) {
  repository(owner: $owner, name: $name) {
    object(expression: $expression) {
      ... on Tree {
        entries { name path type mode oid size }
      }
    }
  }
}`

const getDirectoryContentWithTextQuery = `
query GetDirectoryContentWithText(
  $owner: String!
  $name: String!
  $expression: String!
) {
  repository(owner: $owner, name: $name) {
    object(expression: $expression) {
      ... on Tree {
        entries {
          name
          path
          type
          mode
          oid
          size
          object {
            ... on Blob { isBinary byteSize text }
          }
        }
      }
    }
  }
}`

const getCommitQuery = `
query GetCommit($owner: String!, $name: String!, $oid: GitObjectID!) {
  repository(owner: $owner, name: $name) {
    object(oid: $oid) {
      ... on Commit {
        oid
        message
        parents(first: 2) { nodes { oid } }
      }
    }
  }
}`

const createCommitMutation = `
mutation CreateCommit($input: CreateCommitOnBranchInput!) {
  createCommitOnBranch(input: $input) {
    commit { oid }
  }
}`

const getExistingPullRequestQuery = `
query GetExistingPullRequest(
  $owner: String!
  $name: String!
  $head: String!
  $base: String!
) {
  repository(owner: $owner, name: $name) {
    pullRequests(
      first: 20
      headRefName: $head
      baseRefName: $base
      states: [OPEN]
    ) {
      nodes { ...PullRequestFields }
    }
  }
}` + pullRequestFields

const createPullRequestMutation = `
mutation CreatePullRequest($input: CreatePullRequestInput!) {
  createPullRequest(input: $input) {
    pullRequest { ...PullRequestFields }
  }
}` + pullRequestFields

const updatePullRequestMutation = `
mutation UpdatePullRequest($input: UpdatePullRequestInput!) {
  updatePullRequest(input: $input) {
    pullRequest { ...PullRequestFields }
  }
}` + pullRequestFields

const getLabelQuery = `
query GetLabel($owner: String!, $name: String!, $label: String!) {
  repository(owner: $owner, name: $name) {
    label(name: $label) { id }
  }
}`

const addLabelsMutation = `
mutation AddLabels($labelableId: ID!, $labelIds: [ID!]!) {
  addLabelsToLabelable(
    input: {labelableId: $labelableId, labelIds: $labelIds}
  ) {
    clientMutationId
  }
}`

const getAllValuesQuery = `
query GetAllValues($enum: String!) {
  __type(name: $enum) {
    enumValues { name }
  }
}`
